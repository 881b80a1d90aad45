package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireWorkspace(t *testing.T) {
	var seenWorkspace, seenActor string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenWorkspace = Workspace(r)
		seenActor = Actor(r)
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireWorkspace(next)

	t.Run("with header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
		req.Header.Set(WorkspaceHeader, "ws1")
		req.Header.Set(ActorHeader, "alice")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if seenWorkspace != "ws1" {
			t.Errorf("workspace = %q, want ws1", seenWorkspace)
		}
		if seenActor != "alice" {
			t.Errorf("actor = %q, want alice", seenActor)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("actor defaults", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
		req.Header.Set(WorkspaceHeader, "ws1")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if seenActor != "unknown" {
			t.Errorf("actor = %q, want unknown", seenActor)
		}
	})
}
