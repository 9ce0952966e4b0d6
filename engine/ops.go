package engine

import (
	"sync"
	"time"
)

// OpKind names the kind of work an operation performs
type OpKind string

// Operation kinds
const (
	OpLoad    OpKind = "loading"
	OpRefresh OpKind = "refreshing"
	OpSend    OpKind = "sending"
	OpUpload  OpKind = "uploading"
	OpDelete  OpKind = "deleting"
	OpExport  OpKind = "exporting"
)

// OpState is the lifecycle state of an operation
type OpState string

// Operation states. Pending is the only non-terminal state.
const (
	OpPending OpState = "pending"
	OpSettled OpState = "settled"
	OpFailed  OpState = "failed"
)

const maxFinishedOps = 50

// Operation is a snapshot of one tracked operation
type Operation struct {
	ID         string    `json:"id"`
	Kind       OpKind    `json:"kind"`
	State      OpState   `json:"state"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Flags are the loading indicators derived from pending operations
type Flags struct {
	Loading    bool `json:"loading"`
	Refreshing bool `json:"refreshing"`
	Sending    bool `json:"sending"`
	Uploading  bool `json:"uploading"`
	Exporting  bool `json:"exporting"`
}

// tracker records every operation as a small state machine. Each operation
// leaves pending exactly once; later transitions are ignored.
type tracker struct {
	mu       sync.Mutex
	now      func() time.Time
	newID    func() string
	pending  map[string]*Operation
	finished []Operation
}

func newTracker(now func() time.Time, newID func() string) *tracker {
	return &tracker{
		now:     now,
		newID:   newID,
		pending: make(map[string]*Operation),
	}
}

// op is the handle returned to the goroutine that owns an operation
type op struct {
	t  *tracker
	id string
}

func (t *tracker) begin(kind OpKind) *op {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.newID()
	t.pending[id] = &Operation{
		ID:        id,
		Kind:      kind,
		State:     OpPending,
		StartedAt: t.now(),
	}
	return &op{t: t, id: id}
}

// Settle marks the operation successful. It reports whether this call made
// the transition.
func (o *op) Settle() bool {
	return o.t.finish(o.id, OpSettled, nil)
}

// Fail marks the operation failed. It reports whether this call made the
// transition.
func (o *op) Fail(err error) bool {
	return o.t.finish(o.id, OpFailed, err)
}

func (o *op) ID() string { return o.id }

func (t *tracker) finish(id string, state OpState, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.pending[id]
	if !ok {
		return false
	}
	delete(t.pending, id)

	o.State = state
	o.FinishedAt = t.now()
	if err != nil {
		o.Error = err.Error()
	}
	t.finished = append([]Operation{*o}, t.finished...)
	if len(t.finished) > maxFinishedOps {
		t.finished = t.finished[:maxFinishedOps]
	}
	return true
}

func (t *tracker) flags() Flags {
	t.mu.Lock()
	defer t.mu.Unlock()

	var f Flags
	for _, o := range t.pending {
		switch o.Kind {
		case OpLoad:
			f.Loading = true
		case OpRefresh:
			f.Refreshing = true
		case OpSend:
			f.Sending = true
		case OpUpload:
			f.Uploading = true
		case OpExport:
			f.Exporting = true
		}
	}
	return f
}

// state returns the current state of an operation by id.
func (t *tracker) state(id string) (Operation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if o, ok := t.pending[id]; ok {
		return *o, true
	}
	for _, o := range t.finished {
		if o.ID == id {
			return o, true
		}
	}
	return Operation{}, false
}

// recent returns the most recently finished operations, newest first.
func (t *tracker) recent() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Operation(nil), t.finished...)
}
