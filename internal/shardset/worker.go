package shardset

import (
	"sync/atomic"

	"github.com/azavalny/system-design/internal/bptree"
)

// OperationStats counts the work a single shard has performed. The fields
// are updated with atomics so Stats can be read while workers are running.
type OperationStats struct {
	Inserts  uint64 // Entries applied from insert batches
	Searches uint64 // Point lookups served
	Scans    uint64 // Range scans served
}

// request is one query batch for a single shard: point lookups, scan tasks,
// or both. reply is buffered so the worker never blocks on a slow reader.
type request struct {
	keys  []int64
	scans []scanTask
	reply chan response
}

// scanTask is one clipped range, tagged with its position in the caller's
// batch so the coordinator can reassemble results per range.
type scanTask struct {
	idx int
	lo  int64
	hi  int64
}

// pointHit mirrors one entry of request.keys.
type pointHit struct {
	value []byte
	found bool
}

// scanHit carries the ordered entries for one scanTask.
type scanHit struct {
	idx     int
	entries []bptree.Entry
}

type response struct {
	shard  int
	points []pointHit
	scans  []scanHit
}

// worker exclusively owns one tree. Nothing else ever touches it: batches
// arrive over the two stream channels and results leave over per-request
// reply channels, so the tree needs no locking at all.
type worker struct {
	id      int
	tree    *bptree.Tree
	inserts chan []bptree.Entry
	queries chan request
	done    chan struct{}
	stats   OperationStats
}

func newWorker(id, order int) (*worker, error) {
	tree, err := bptree.New(order)
	if err != nil {
		return nil, err
	}
	return &worker{
		id:      id,
		tree:    tree,
		inserts: make(chan []bptree.Entry, 1),
		queries: make(chan request, 1),
		done:    make(chan struct{}),
	}, nil
}

// run drains the insert stream to completion before serving a single query.
// Closing a stream channel is its end-of-stream marker: it is distinct from
// every valid batch (including the empty one) and tells the worker to stop
// waiting for more work. Since the insert stream ends before the query loop
// begins, every query batch observes every insert dispatched before it.
// Closing the query stream is the worker's shutdown path.
func (w *worker) run() {
	defer close(w.done)

	for batch := range w.inserts {
		for _, e := range batch {
			w.tree.Insert(e.Key, e.Value)
			atomic.AddUint64(&w.stats.Inserts, 1)
		}
	}

	for req := range w.queries {
		req.reply <- w.serve(req)
	}
}

func (w *worker) serve(req request) response {
	resp := response{shard: w.id}
	if len(req.keys) > 0 {
		resp.points = make([]pointHit, len(req.keys))
		for i, k := range req.keys {
			v, ok := w.tree.Search(k)
			resp.points[i] = pointHit{value: v, found: ok}
			atomic.AddUint64(&w.stats.Searches, 1)
		}
	}
	for _, task := range req.scans {
		resp.scans = append(resp.scans, scanHit{
			idx:     task.idx,
			entries: w.tree.RangeScan(task.lo, task.hi),
		})
		atomic.AddUint64(&w.stats.Scans, 1)
	}
	return resp
}

// snapshot reads the counters atomically.
func (w *worker) snapshot() OperationStats {
	return OperationStats{
		Inserts:  atomic.LoadUint64(&w.stats.Inserts),
		Searches: atomic.LoadUint64(&w.stats.Searches),
		Scans:    atomic.LoadUint64(&w.stats.Scans),
	}
}
