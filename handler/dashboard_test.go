package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/techpathlabs/milestonedesk/engine"
	"github.com/techpathlabs/milestonedesk/model"
)

type listResponse struct {
	Milestones []model.Milestone `json:"milestones"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Total      int               `json:"total"`
	FetchError string            `json:"fetch_error"`
}

func TestDashboardSnapshot(t *testing.T) {
	gw := &fakeGateway{
		docs:     testDocs(3),
		triggers: []model.Trigger{{ID: "t1", Label: "Nightly"}},
	}
	srv := newTestServer(t, gw)
	token, sessionID := srv.login(t, "")

	w := srv.do(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var snap engine.Snapshot
	decode(t, w, &snap)
	if snap.SessionID != sessionID {
		t.Errorf("Expected session %s, got %s", sessionID, snap.SessionID)
	}
	if len(snap.Milestones) != 3 {
		t.Errorf("Expected 3 milestones, got %d", len(snap.Milestones))
	}
	if len(snap.Triggers) != 1 {
		t.Errorf("Expected 1 trigger, got %d", len(snap.Triggers))
	}
	if snap.LastRefreshed == nil {
		t.Error("Expected last refreshed time")
	}
}

func TestListMilestones(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{docs: testDocs(12)})
	token, _ := srv.login(t, "")

	tests := []struct {
		name          string
		query         string
		expectedPage  int
		expectedPages int
		expectedTotal int
		firstID       string
	}{
		{"first page newest first", "", 1, 2, 12, "doc-12"},
		{"second page", "?page=2", 2, 2, 12, "doc-2"},
		{"page clamped to last", "?page=9", 2, 2, 12, "doc-2"},
		{"filter by borrower", "?q=GADGET", 1, 1, 1, "doc-1"},
		{"filter without match", "?q=nothing-matches", 1, 1, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(httptest.NewRequest(http.MethodGet, "/api/milestones"+tt.query, nil), token)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp listResponse
			decode(t, w, &resp)
			if resp.Page != tt.expectedPage {
				t.Errorf("Expected page %d, got %d", tt.expectedPage, resp.Page)
			}
			if resp.TotalPages != tt.expectedPages {
				t.Errorf("Expected %d pages, got %d", tt.expectedPages, resp.TotalPages)
			}
			if resp.Total != tt.expectedTotal {
				t.Errorf("Expected total %d, got %d", tt.expectedTotal, resp.Total)
			}
			if tt.firstID == "" {
				if len(resp.Milestones) != 0 {
					t.Errorf("Expected no milestones, got %d", len(resp.Milestones))
				}
				return
			}
			if len(resp.Milestones) == 0 || resp.Milestones[0].ID != tt.firstID {
				t.Errorf("Expected first milestone %s, got %+v", tt.firstID, resp.Milestones)
			}
		})
	}
}

func TestListMilestonesInvalidPage(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{})
	token, _ := srv.login(t, "")

	w := srv.do(httptest.NewRequest(http.MethodGet, "/api/milestones?page=abc", nil), token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetMilestone(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{docs: testDocs(2)})
	token, _ := srv.login(t, "")

	w := srv.do(httptest.NewRequest(http.MethodGet, "/api/milestones/doc-2", nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Milestone model.Milestone  `json:"milestone"`
		Risk      model.Assessment `json:"risk"`
	}
	decode(t, w, &resp)
	if resp.Milestone.ID != "doc-2" {
		t.Errorf("Expected doc-2, got %s", resp.Milestone.ID)
	}
	if resp.Risk.Level != model.RiskLow {
		t.Errorf("Expected low risk for a vectorized document, got %s", resp.Risk.Level)
	}

	w = srv.do(httptest.NewRequest(http.MethodGet, "/api/milestones/missing", nil), token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDeleteMilestone(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{docs: testDocs(2)})
	token, _ := srv.login(t, "")

	w := srv.do(httptest.NewRequest(http.MethodDelete, "/api/milestones/doc-1", nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	decode(t, w, &resp)
	if !resp.Deleted {
		t.Error("Expected milestone to be deleted")
	}

	w = srv.do(httptest.NewRequest(http.MethodGet, "/api/milestones/doc-1", nil), token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected deleted milestone to be gone, got %d", w.Code)
	}

	w = srv.do(httptest.NewRequest(http.MethodDelete, "/api/milestones/doc-1", nil), token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown milestone, got %d", w.Code)
	}

	w = srv.do(httptest.NewRequest(http.MethodGet, "/api/executions", nil), token)
	var execs struct {
		Executions []model.Execution `json:"executions"`
	}
	decode(t, w, &execs)
	if len(execs.Executions) == 0 || execs.Executions[0].Label != "Milestone deleted: Loan agreement 1" {
		t.Errorf("Expected delete execution first, got %+v", execs.Executions)
	}
}

func TestRefreshReportsConnectionLoss(t *testing.T) {
	gw := &fakeGateway{docs: testDocs(2)}
	srv := newTestServer(t, gw)
	token, _ := srv.login(t, "")

	gw.mu.Lock()
	gw.docsErr = errFakeOffline
	gw.mu.Unlock()

	w := srv.do(httptest.NewRequest(http.MethodPost, "/api/milestones/refresh", nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var snap engine.Snapshot
	decode(t, w, &snap)
	if snap.FetchError != engine.ConnectionLost {
		t.Errorf("Expected fetch error %q, got %q", engine.ConnectionLost, snap.FetchError)
	}
	if len(snap.Milestones) != 2 {
		t.Errorf("Expected milestones kept on failure, got %d", len(snap.Milestones))
	}
}

func TestTriggers(t *testing.T) {
	gw := &fakeGateway{triggers: []model.Trigger{{ID: "t1", Label: "Nightly"}, {ID: "t2", Label: "Weekly"}}}
	srv := newTestServer(t, gw)
	token, _ := srv.login(t, "")

	w := srv.do(httptest.NewRequest(http.MethodGet, "/api/triggers", nil), token)
	var resp struct {
		Triggers []model.Trigger `json:"triggers"`
	}
	decode(t, w, &resp)
	if len(resp.Triggers) != 2 || resp.Triggers[0].Label != "Nightly" {
		t.Errorf("Unexpected triggers: %+v", resp.Triggers)
	}
}

func TestOperationLookup(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{})
	token, sessionID := srv.login(t, "")

	eng, _ := srv.store.Get(sessionID)
	ops := eng.Snapshot().Operations
	if len(ops) == 0 {
		t.Fatal("Expected the initial load operation to be recorded")
	}

	w := srv.do(httptest.NewRequest(http.MethodGet, "/api/operations/"+ops[0].ID, nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var op engine.Operation
	decode(t, w, &op)
	if op.State != engine.OpSettled {
		t.Errorf("Expected settled operation, got %s", op.State)
	}

	w = srv.do(httptest.NewRequest(http.MethodGet, "/api/operations/missing", nil), token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
