// Package engine owns the in-memory state of one dashboard session and
// orchestrates the gateways and parsers that feed it.
//
// An Engine runs in one of two modes chosen at construction. In remote mode
// a poll timer reconciles the milestone collection against the document
// listing, replacing it wholesale on every successful fetch. In local mode
// there is no poll timer and milestones are appended from webhook responses,
// falling back to the local parsers when the webhook is unavailable.
//
// Every operation is tracked as a pending, settled or failed state machine;
// the loading flags exposed to the UI are derived from the pending set.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/gateway"
	"github.com/techpathlabs/milestonedesk/model"
	"github.com/techpathlabs/milestonedesk/parser"
	"github.com/techpathlabs/milestonedesk/pkg/logger"
)

// ConnectionLost is the fetch error shown while document polls fail.
const ConnectionLost = "connection lost, retrying"

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrEmptyFile    = errors.New("file name is empty")
	ErrNotFound     = errors.New("not found")

	errAbandoned = errors.New("operation abandoned")
)

// ChatGateway sends chat messages to the agent webhook.
type ChatGateway interface {
	SendChat(ctx context.Context, sessionID, message string) (*gateway.ChatReply, error)
}

// DocumentGateway lists and deletes server documents.
type DocumentGateway interface {
	ListDocuments(ctx context.Context) ([]model.Milestone, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// UploadGateway submits files for ingestion.
type UploadGateway interface {
	UploadFile(ctx context.Context, fileName string, content io.Reader) (*gateway.UploadResult, error)
}

// TriggerGateway lists remote workflow triggers.
type TriggerGateway interface {
	ListTriggers(ctx context.Context) ([]model.Trigger, error)
}

// ArtifactStore keeps generated export files. URL returns a download link
// valid from the time of the call, or an empty string when the store
// cannot serve objects directly.
type ArtifactStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	URL(ctx context.Context, key string) (string, error)
}

// Config selects the engine's behavior
type Config struct {
	SessionID    string
	Mode         string
	DeleteMode   string
	PollInterval time.Duration
}

// Deps are the collaborators of an Engine. Parser, Now and NewID are
// optional.
type Deps struct {
	Chat      ChatGateway
	Documents DocumentGateway
	Uploader  UploadGateway
	Triggers  TriggerGateway
	Artifacts ArtifactStore
	Parser    *parser.Parser
	Now       func() time.Time
	NewID     func() string
}

// Engine is the synchronization engine of one session.
type Engine struct {
	cfg    Config
	deps   Deps
	parser *parser.Parser
	ops    *tracker
	log    *ExecutionLog

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.RWMutex
	milestones    []model.Milestone
	messages      []model.ChatMessage
	exports       []model.ExportFile
	triggers      []model.Trigger
	lastRefreshed time.Time
	fetchErr      string
	initialized   bool
	refreshSeq    uint64
	appliedSeq    uint64

	bgMu    sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Snapshot is a consistent copy of the engine state
type Snapshot struct {
	SessionID     string              `json:"session_id"`
	Mode          string              `json:"mode"`
	Milestones    []model.Milestone   `json:"milestones"`
	Messages      []model.ChatMessage `json:"messages"`
	Executions    []model.Execution   `json:"executions"`
	Exports       []model.ExportFile  `json:"exports"`
	Triggers      []model.Trigger     `json:"triggers"`
	Flags         Flags               `json:"flags"`
	LastRefreshed *time.Time          `json:"last_refreshed,omitempty"`
	FetchError    string              `json:"fetch_error,omitempty"`
	Operations    []Operation         `json:"operations"`
}

// New builds an engine. It does not start the poll timer; call Start.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Chat == nil || deps.Documents == nil || deps.Uploader == nil || deps.Triggers == nil {
		return nil, fmt.Errorf("engine: all gateways are required")
	}
	if deps.Artifacts == nil {
		return nil, fmt.Errorf("engine: artifact store is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = config.ModeRemote
	}
	if cfg.DeleteMode == "" {
		cfg.DeleteMode = config.DeleteLocal
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.New().String()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.New().String() }
	}

	p := deps.Parser
	if p == nil {
		p = &parser.Parser{Now: deps.Now, NewID: deps.NewID}
	}

	ctx, cancel := context.WithCancel(logger.WithSession(context.Background(), cfg.SessionID))
	return &Engine{
		cfg:        cfg,
		deps:       deps,
		parser:     p,
		ops:        newTracker(deps.Now, deps.NewID),
		log:        NewExecutionLog(deps.Now, deps.NewID),
		ctx:        ctx,
		cancel:     cancel,
		milestones: []model.Milestone{},
		messages:   []model.ChatMessage{},
		exports:    []model.ExportFile{},
		triggers:   []model.Trigger{},
		stopCh:     make(chan struct{}),
	}, nil
}

// SessionID returns the session the engine belongs to.
func (e *Engine) SessionID() string { return e.cfg.SessionID }

// Mode returns the sync mode.
func (e *Engine) Mode() string { return e.cfg.Mode }

// Start runs the initial fetch in the background and, in remote mode,
// starts the poll timer. Calling Start more than once has no effect.
func (e *Engine) Start() {
	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true

	e.wg.Add(1)
	go e.run()
}

func (e *Engine) run() {
	defer e.wg.Done()

	e.Refresh(e.ctx)
	if e.cfg.Mode != config.ModeRemote || e.cfg.PollInterval <= 0 {
		return
	}

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.Refresh(e.ctx)
		}
	}
}

// Stop cancels the poll timer and background refreshes and waits for them
// to return. It is safe to call more than once.
func (e *Engine) Stop() {
	e.bgMu.Lock()
	if !e.stopped {
		e.stopped = true
		close(e.stopCh)
		e.cancel()
	}
	e.bgMu.Unlock()

	e.wg.Wait()
	logger.Debug(e.ctx, "engine stopped")
}

// background runs fn on the engine context unless the engine is stopped.
func (e *Engine) background(fn func(ctx context.Context)) bool {
	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	if e.stopped {
		return false
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn(e.ctx)
	}()
	return true
}

func (e *Engine) withSession(ctx context.Context) context.Context {
	return logger.WithSession(ctx, e.cfg.SessionID)
}

// Snapshot returns a copy of the whole engine state.
func (e *Engine) Snapshot() Snapshot {
	flags := e.ops.flags()
	ops := e.ops.recent()
	executions := e.log.Entries()

	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Snapshot{
		SessionID:  e.cfg.SessionID,
		Mode:       e.cfg.Mode,
		Milestones: append([]model.Milestone{}, e.milestones...),
		Messages:   append([]model.ChatMessage{}, e.messages...),
		Executions: executions,
		Exports:    append([]model.ExportFile{}, e.exports...),
		Triggers:   append([]model.Trigger{}, e.triggers...),
		Flags:      flags,
		FetchError: e.fetchErr,
		Operations: ops,
	}
	if !e.lastRefreshed.IsZero() {
		t := e.lastRefreshed
		s.LastRefreshed = &t
	}
	return s
}

// Flags returns the loading indicators.
func (e *Engine) Flags() Flags {
	return e.ops.flags()
}

// Operation looks up a tracked operation by id.
func (e *Engine) Operation(id string) (Operation, bool) {
	return e.ops.state(id)
}

// Milestones returns a copy of the milestone collection.
func (e *Engine) Milestones() []model.Milestone {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]model.Milestone{}, e.milestones...)
}

// Milestone returns the milestone with id.
func (e *Engine) Milestone(id string) (model.Milestone, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, m := range e.milestones {
		if m.ID == id {
			return m, true
		}
	}
	return model.Milestone{}, false
}

// Messages returns a copy of the chat transcript, oldest first.
func (e *Engine) Messages() []model.ChatMessage {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]model.ChatMessage{}, e.messages...)
}

// Executions returns a copy of the execution log, newest first.
func (e *Engine) Executions() []model.Execution {
	return e.log.Entries()
}

// ExecutionCount returns the number of logged executions.
func (e *Engine) ExecutionCount() int {
	return e.log.Len()
}

// Exports returns a copy of the export list, newest first.
func (e *Engine) Exports() []model.ExportFile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]model.ExportFile{}, e.exports...)
}

// Triggers returns a copy of the trigger mirror, newest first.
func (e *Engine) Triggers() []model.Trigger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]model.Trigger{}, e.triggers...)
}

// FetchError returns the current poll error, or an empty string.
func (e *Engine) FetchError() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fetchErr
}

func (e *Engine) addMessage(role model.Role, content string) model.ChatMessage {
	msg := model.ChatMessage{
		ID:        e.deps.NewID(),
		Role:      role,
		Content:   content,
		CreatedAt: e.deps.Now(),
	}
	e.mu.Lock()
	e.messages = append(e.messages, msg)
	e.mu.Unlock()
	return msg
}

func (e *Engine) removeMessage(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, m := range e.messages {
		if m.ID == id {
			e.messages = append(e.messages[:i:i], e.messages[i+1:]...)
			return
		}
	}
}

func (e *Engine) appendMilestones(items []model.Milestone) {
	if len(items) == 0 {
		return
	}
	e.mu.Lock()
	e.milestones = append(e.milestones, items...)
	e.mu.Unlock()
}
