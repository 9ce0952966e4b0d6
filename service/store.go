package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/engine"
	"github.com/techpathlabs/milestonedesk/gateway"
)

// ErrStoreClosed is returned once the store has been closed
var ErrStoreClosed = errors.New("session store closed")

// EngineFactory builds the engine for a new session
type EngineFactory func(sessionID string) (*engine.Engine, error)

// NewEngineFactory wires every session engine to the shared gateway client
// and artifact store.
func NewEngineFactory(cfg *config.Config, client *gateway.Client, artifacts ArtifactStore) EngineFactory {
	return func(sessionID string) (*engine.Engine, error) {
		return engine.New(engine.Config{
			SessionID:    sessionID,
			Mode:         cfg.Sync.Mode,
			DeleteMode:   cfg.Sync.DeleteMode,
			PollInterval: cfg.Sync.PollInterval(),
		}, engine.Deps{
			Chat:      client,
			Documents: client,
			Uploader:  client,
			Triggers:  client,
			Artifacts: artifacts,
		})
	}
}

type session struct {
	engine    *engine.Engine
	createdAt time.Time
	lastSeen  time.Time
}

// SessionStore holds one running engine per dashboard session
type SessionStore struct {
	sessions    map[string]*session
	mu          sync.Mutex
	maxSessions int // Maximum sessions to keep, 0 = unlimited
	factory     EngineFactory
	artifacts   ArtifactStore
	now         func() time.Time
	closed      bool
}

func NewSessionStore(cfg *config.SyncConfig, factory EngineFactory, artifacts ArtifactStore) *SessionStore {
	maxSessions := cfg.MaxSessions
	if maxSessions < 0 {
		maxSessions = 0
	}
	slog.Info("session store initialized", "max_sessions", maxSessions, "mode", cfg.Mode)
	return &SessionStore{
		sessions:    make(map[string]*session),
		maxSessions: maxSessions,
		factory:     factory,
		artifacts:   artifacts,
		now:         time.Now,
	}
}

// GetOrCreate returns the engine of sessionID, creating and starting one
// when the session is unknown. A blank id gets a fresh one.
func (s *SessionStore) GetOrCreate(sessionID string) (*engine.Engine, bool, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	s.mu.Lock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastSeen = s.now()
		s.mu.Unlock()
		return sess.engine, false, nil
	}
	if s.closed {
		s.mu.Unlock()
		return nil, false, ErrStoreClosed
	}

	eng, err := s.factory(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, false, err
	}
	now := s.now()
	s.sessions[sessionID] = &session{engine: eng, createdAt: now, lastSeen: now}
	evicted := s.cleanupIfNeeded(sessionID)
	s.mu.Unlock()

	eng.Start()
	s.stopAll(evicted)
	return eng, true, nil
}

// Get returns a running session engine.
func (s *SessionStore) Get(sessionID string) (*engine.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.engine, true
}

// Remove stops and forgets a session.
func (s *SessionStore) Remove(sessionID string) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if ok {
		s.stopAll([]*engine.Engine{sess.engine})
	}
}

// Close stops every session engine. GetOrCreate fails afterwards.
func (s *SessionStore) Close() {
	s.mu.Lock()
	s.closed = true
	engines := make([]*engine.Engine, 0, len(s.sessions))
	for id, sess := range s.sessions {
		engines = append(engines, sess.engine)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	s.stopAll(engines)
}

// cleanupIfNeeded drops the least recently seen sessions above
// maxSessions, never keep, and returns their engines for stopping.
// Must be called with lock held
func (s *SessionStore) cleanupIfNeeded(keep string) []*engine.Engine {
	if s.maxSessions <= 0 || len(s.sessions) <= s.maxSessions {
		return nil
	}

	type entry struct {
		id   string
		sess *session
	}
	entries := make([]entry, 0, len(s.sessions))
	for id, sess := range s.sessions {
		if id != keep {
			entries = append(entries, entry{id, sess})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].sess, entries[j].sess
		if a.lastSeen.Equal(b.lastSeen) {
			return a.createdAt.Before(b.createdAt)
		}
		return a.lastSeen.Before(b.lastSeen)
	})

	removeCount := len(s.sessions) - s.maxSessions
	evicted := make([]*engine.Engine, 0, removeCount)
	for i := 0; i < removeCount; i++ {
		slog.Info("evicting idle session",
			"session_id", entries[i].id,
			"last_seen", entries[i].sess.lastSeen,
		)
		delete(s.sessions, entries[i].id)
		evicted = append(evicted, entries[i].sess.engine)
	}
	return evicted
}

// stopAll stops engines and drops their stored exports.
func (s *SessionStore) stopAll(engines []*engine.Engine) {
	for _, eng := range engines {
		eng.Stop()
		if s.artifacts == nil {
			continue
		}
		for _, f := range eng.Exports() {
			if err := s.artifacts.Delete(context.Background(), f.ObjectKey); err != nil {
				slog.Warn("failed to delete export", "session_id", eng.SessionID(), "key", f.ObjectKey, "error", err)
			}
		}
	}
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ArtifactCount reports how many export objects the artifact store holds.
// The second result is false when the store cannot count its objects.
func (s *SessionStore) ArtifactCount() (int, bool) {
	counter, ok := s.artifacts.(interface{ Count() int })
	if !ok {
		return 0, false
	}
	return counter.Count(), true
}
