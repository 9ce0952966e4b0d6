package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/engine"
	"github.com/techpathlabs/milestonedesk/gateway"
	"github.com/techpathlabs/milestonedesk/model"
	"github.com/techpathlabs/milestonedesk/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errFakeOffline = &gateway.TransportError{Endpoint: gateway.EndpointDocuments, Err: errors.New("connection refused")}

// fakeGateway serves all four remote endpoints from memory
type fakeGateway struct {
	mu        sync.Mutex
	reply     *gateway.ChatReply
	chatErr   error
	docs      []model.Milestone
	docsErr   error
	uploadErr error
	uploads   []string
	triggers  []model.Trigger
}

func (g *fakeGateway) SendChat(ctx context.Context, sessionID, message string) (*gateway.ChatReply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reply, g.chatErr
}

func (g *fakeGateway) ListDocuments(ctx context.Context) ([]model.Milestone, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.Milestone(nil), g.docs...), g.docsErr
}

func (g *fakeGateway) DeleteDocument(ctx context.Context, documentID string) error {
	return nil
}

func (g *fakeGateway) UploadFile(ctx context.Context, fileName string, content io.Reader) (*gateway.UploadResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.uploadErr != nil {
		return nil, g.uploadErr
	}
	g.uploads = append(g.uploads, fileName)
	return &gateway.UploadResult{StatusCode: http.StatusOK}, nil
}

func (g *fakeGateway) ListTriggers(ctx context.Context) ([]model.Trigger, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.triggers, nil
}

func testDocs(n int) []model.Milestone {
	docs := make([]model.Milestone, n)
	for i := range docs {
		docs[i] = model.Milestone{
			ID:           fmt.Sprintf("doc-%d", i+1),
			Name:         fmt.Sprintf("Loan agreement %d", i+1),
			FileName:     fmt.Sprintf("loan-%d.pdf", i+1),
			Lender:       "Acme Bank",
			Borrower:     "Widget Co",
			UploadTime:   fmt.Sprintf("2025-06-%02dT10:00:00Z", i+1),
			DeadlineDate: "2099-01-01",
			RawStatus:    "vectorized",
			Status:       model.StatusDone,
		}
	}
	docs[0].Borrower = "Gadget Ltd"
	return docs
}

type testServer struct {
	router *gin.Engine
	store  *service.SessionStore
	config *config.Config
	gw     *fakeGateway
}

func newTestServer(t *testing.T, gw *fakeGateway) *testServer {
	t.Helper()
	return newTestServerWithArtifacts(t, gw, service.NewMemoryArtifactStore())
}

func newTestServerWithArtifacts(t *testing.T, gw *fakeGateway, artifacts service.ArtifactStore) *testServer {
	t.Helper()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			PIN:              "123456",
			JWTSecret:        "test-secret",
			TokenExpireHours: 1,
		},
		Sync: config.SyncConfig{
			Mode:        config.ModeRemote,
			DeleteMode:  config.DeleteLocal,
			MaxSessions: 10,
		},
	}
	factory := func(sessionID string) (*engine.Engine, error) {
		return engine.New(engine.Config{
			SessionID:  sessionID,
			Mode:       cfg.Sync.Mode,
			DeleteMode: cfg.Sync.DeleteMode,
		}, engine.Deps{
			Chat:      gw,
			Documents: gw,
			Uploader:  gw,
			Triggers:  gw,
			Artifacts: artifacts,
		})
	}
	store := service.NewSessionStore(&cfg.Sync, factory, artifacts)
	t.Cleanup(store.Close)

	return &testServer{
		router: NewRouter(cfg, store),
		store:  store,
		config: cfg,
		gw:     gw,
	}
}

func (s *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token)
}

// login unlocks a session and waits for its initial load to finish so
// later requests see a settled milestone table.
func (s *testServer) login(t *testing.T, sessionID string) (string, string) {
	t.Helper()

	w := s.doJSON(http.MethodPost, "/api/auth/pin", "", map[string]string{"pin": "123456", "session_id": sessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected login to succeed, got %d: %s", w.Code, w.Body.String())
	}
	var resp PinResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse login response: %v", err)
	}

	eng, ok := s.store.Get(resp.SessionID)
	if !ok {
		t.Fatalf("Expected session %s to be running", resp.SessionID)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := eng.Snapshot()
		if (snap.LastRefreshed != nil || snap.FetchError != "") && !snap.Flags.Loading {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for initial load")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return resp.Token, resp.SessionID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
}
