package store

import "sync"

// writeQueue runs submitted jobs one at a time in submission order on a
// goroutine that only lives while there is work.
type writeQueue struct {
	mu      sync.Mutex
	pending []func()
	running bool
	wg      sync.WaitGroup
}

func (q *writeQueue) push(job func()) {
	q.wg.Add(1)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, job)
	if !q.running {
		q.running = true
		go q.drain()
	}
}

func (q *writeQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		job := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		job()
		q.wg.Done()
	}
}

// wait blocks until the queue is empty.
func (q *writeQueue) wait() {
	q.wg.Wait()
}
