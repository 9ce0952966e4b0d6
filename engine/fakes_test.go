package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/gateway"
	"github.com/techpathlabs/milestonedesk/model"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)

type fakeChat struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, message string) (*gateway.ChatReply, error)
	calls []string
}

func (f *fakeChat) SendChat(ctx context.Context, sessionID, message string) (*gateway.ChatReply, error) {
	f.mu.Lock()
	f.calls = append(f.calls, message)
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return &gateway.ChatReply{Kind: gateway.NoReply}, nil
	}
	return fn(ctx, message)
}

type fakeDocuments struct {
	mu        sync.Mutex
	listFn    func(ctx context.Context) ([]model.Milestone, error)
	lists     int
	deleteErr error
	deleted   []string
}

func (f *fakeDocuments) ListDocuments(ctx context.Context) ([]model.Milestone, error) {
	f.mu.Lock()
	f.lists++
	fn := f.listFn
	f.mu.Unlock()
	if fn == nil {
		return []model.Milestone{}, nil
	}
	return fn(ctx)
}

func (f *fakeDocuments) DeleteDocument(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, documentID)
	return f.deleteErr
}

func (f *fakeDocuments) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

type fakeUploader struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, name string, content []byte) (*gateway.UploadResult, error)
	names []string
}

func (f *fakeUploader) UploadFile(ctx context.Context, fileName string, content io.Reader) (*gateway.UploadResult, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.names = append(f.names, fileName)
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return &gateway.UploadResult{StatusCode: 200}, nil
	}
	return fn(ctx, fileName, data)
}

type fakeTriggers struct {
	mu       sync.Mutex
	triggers []model.Trigger
	err      error
}

func (f *fakeTriggers) ListTriggers(ctx context.Context) ([]model.Trigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggers, f.err
}

type fakeArtifacts struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	baseURL string
	signed  int
	urlErr  error
}

func (f *fakeArtifacts) Put(ctx context.Context, key string, content []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = append([]byte(nil), content...)
	return nil
}

func (f *fakeArtifacts) URL(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.urlErr != nil {
		return "", f.urlErr
	}
	if f.baseURL == "" {
		return "", nil
	}
	f.signed++
	return fmt.Sprintf("%s/%s?sig=%d", f.baseURL, key, f.signed), nil
}

func (f *fakeArtifacts) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

type harness struct {
	engine    *Engine
	chat      *fakeChat
	documents *fakeDocuments
	uploader  *fakeUploader
	triggers  *fakeTriggers
	artifacts *fakeArtifacts
}

func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	h := &harness{
		chat:      &fakeChat{},
		documents: &fakeDocuments{},
		uploader:  &fakeUploader{},
		triggers:  &fakeTriggers{},
		artifacts: &fakeArtifacts{},
	}
	if cfg.SessionID == "" {
		cfg.SessionID = "session-test"
	}

	e, err := New(cfg, Deps{
		Chat:      h.chat,
		Documents: h.documents,
		Uploader:  h.uploader,
		Triggers:  h.triggers,
		Artifacts: h.artifacts,
		Now:       func() time.Time { return fixedNow },
		NewID:     sequentialIDs(),
	})
	require.NoError(t, err)
	t.Cleanup(e.Stop)
	h.engine = e
	return h
}

func remoteHarness(t *testing.T) *harness {
	return newHarness(t, Config{Mode: config.ModeRemote})
}

func localHarness(t *testing.T) *harness {
	return newHarness(t, Config{Mode: config.ModeLocal})
}

func docs(ids ...string) []model.Milestone {
	out := make([]model.Milestone, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Milestone{ID: id, Name: "doc " + id, Status: model.StatusPending})
	}
	return out
}

func ids(items []model.Milestone) []string {
	out := []string{}
	for _, m := range items {
		out = append(out, m.ID)
	}
	return out
}

func messageContents(msgs []model.ChatMessage) []string {
	out := []string{}
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func labels(entries []model.Execution) []string {
	out := []string{}
	for _, e := range entries {
		out = append(out, e.Label)
	}
	return out
}
