// Package jobs tracks variant jobs started through the server and records
// their progress as sequenced events.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ironsheep/hue-variants-mcp/internal/variant"
)

// ErrJobNotFound is returned for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// ErrJobNotRunning is returned when cancel is requested for a finished job.
var ErrJobNotRunning = errors.New("job not running")

// ErrJobRunning is returned when removing a job that has not finished.
var ErrJobRunning = errors.New("job still running")

type entry struct {
	job    *variant.Job
	events *EventBus
}

// Registry holds jobs by ID. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	jobs      map[string]*entry
	maxEvents int
}

// NewRegistry creates an empty registry keeping up to maxEvents events per job.
func NewRegistry(maxEvents int) *Registry {
	return &Registry{
		jobs:      make(map[string]*entry),
		maxEvents: maxEvents,
	}
}

// Submit creates and starts a job for req and registers it.
//
// The request's own callbacks still fire; the registry publishes a progress
// event after each step and a status event before the job's Done channel
// closes. Errors from
// variant.New and Job.Start are returned as is, and a job whose source failed
// to load is not registered.
func (r *Registry) Submit(ctx context.Context, req variant.Request) (*variant.Job, error) {
	bus := NewEventBus(r.maxEvents)
	full := req.Config.FullProgress
	total := req.Config.StepCount

	var job *variant.Job
	onFinish := req.OnFinish
	req.OnFinish = func(st variant.Status) {
		ev := Event{JobID: st.ID, Type: EventTypeStatus, State: st.State, Message: st.Error}
		if st.State == variant.StateCompleted {
			ev.Progress = full
		}
		bus.Publish(ev)
		if onFinish != nil {
			onFinish(st)
		}
	}

	onProgress := req.OnProgress
	req.OnProgress = func(index int) {
		bus.Publish(Event{
			JobID:    job.ID(),
			Type:     EventTypeProgress,
			Index:    index,
			Progress: variant.ScaleProgress(index, total, full),
		})
		if onProgress != nil {
			onProgress(index)
		}
	}

	job, err := variant.New(req)
	if err != nil {
		return nil, err
	}
	if err := job.Start(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.jobs[job.ID()] = &entry{job: job, events: bus}
	r.mu.Unlock()

	return job, nil
}

// Get returns the job with the given ID.
func (r *Registry) Get(id string) (*variant.Job, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.job, nil
}

// Events returns the job's events with sequence strictly greater than since.
func (r *Registry) Events(id string, since int64) ([]Event, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.events.Since(since), nil
}

// Cancel requests a graceful stop of a running job.
func (r *Registry) Cancel(id string) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	if e.job.State().Terminal() {
		return ErrJobNotRunning
	}
	e.job.Cancel()
	return nil
}

// CancelAll requests a stop of every running job.
func (r *Registry) CancelAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.jobs {
		if !e.job.State().Terminal() {
			e.job.Cancel()
		}
	}
}

// WaitAll blocks until every registered job reached a terminal state.
func (r *Registry) WaitAll() {
	r.mu.RLock()
	pending := make([]*variant.Job, 0, len(r.jobs))
	for _, e := range r.jobs {
		pending = append(pending, e.job)
	}
	r.mu.RUnlock()

	for _, job := range pending {
		<-job.Done()
	}
}

// Remove forgets a finished job.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if !e.job.State().Terminal() {
		return ErrJobRunning
	}
	delete(r.jobs, id)
	return nil
}

// List returns status snapshots of all jobs ordered by ID.
func (r *Registry) List() []variant.Status {
	r.mu.RLock()
	out := make([]variant.Status, 0, len(r.jobs))
	for _, e := range r.jobs {
		out = append(out, e.job.Status())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return e, nil
}
