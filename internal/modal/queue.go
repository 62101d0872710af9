package modal

import (
	"sync"

	"pkt.systems/parley/internal/api"
)

// Queue records pushed modals and holds pending mfa_flow callbacks until a
// consumer answers them.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pushed  []Modal
	pending []Modal
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push records m and queues it when it expects an answer.
func (q *Queue) Push(m Modal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushed = append(q.pushed, m)
	if m.Type == TypeMFAFlow && m.Callback != nil {
		q.pending = append(q.pending, m)
	}
	q.cond.Broadcast()
}

// Pushed returns a copy of everything pushed so far.
func (q *Queue) Pushed() []Modal {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Modal, len(q.pushed))
	copy(out, q.pushed)
	return out
}

// Types returns the types of everything pushed so far, in order.
func (q *Queue) Types() []Type {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Type, 0, len(q.pushed))
	for _, m := range q.pushed {
		out = append(out, m.Type)
	}
	return out
}

// Answer blocks until an mfa_flow modal is pending and resolves the oldest
// one with resp. It returns the modal that was answered.
func (q *Queue) Answer(resp *api.MFAResponse) Modal {
	q.mu.Lock()
	for len(q.pending) == 0 {
		q.cond.Wait()
	}
	m := q.pending[0]
	q.pending = q.pending[1:]
	q.mu.Unlock()
	m.Callback(resp)
	return m
}
