package progress

import (
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Sink is the output side of a client's subscription. Deliver must never block.
type Sink interface {
	Deliver(ev Event)
	Close()
}

// Subscription identifies one attachment of a sink to a job id.
type Subscription struct {
	JobID string
	token uuid.UUID
}

type entry struct {
	token uuid.UUID
	sink  Sink
}

// Registry maps job ids to the sink currently subscribed to them.
// Events published for a job with no subscriber are dropped.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
	logger  hclog.Logger
}

func NewRegistry(logger hclog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]entry),
		logger:  logger,
	}
}

// Subscribe attaches sink to jobID. A previous subscriber for the same id is
// replaced and closed.
func (r *Registry) Subscribe(jobID string, sink Sink) Subscription {
	sub := Subscription{JobID: jobID, token: uuid.New()}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[jobID]; ok {
		r.logger.Debug("replacing progress subscriber", "job", jobID)
		prev.sink.Close()
	}
	r.entries[jobID] = entry{token: sub.token, sink: sink}
	return sub
}

// Unsubscribe detaches sub if it is still the current subscriber of its job.
func (r *Registry) Unsubscribe(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.entries[sub.JobID]; ok && cur.token == sub.token {
		delete(r.entries, sub.JobID)
	}
}

// Publish delivers ev to the subscriber of jobID, if any. A terminal event
// detaches and closes the subscriber after delivery.
func (r *Registry) Publish(jobID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.entries[jobID]
	if !ok {
		return
	}
	cur.sink.Deliver(ev)
	if ev.Terminal() {
		delete(r.entries, jobID)
		cur.sink.Close()
	}
}

// Len returns the number of attached subscribers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
