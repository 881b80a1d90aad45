// Package api exposes the campaign engine's HTTP surface: campaign CRUD,
// send/schedule triggers, and statistics.
//
// Authentication and session handling live outside this subsystem. The
// upstream gateway authenticates the principal and forwards its workspace in
// the X-Workspace-ID header; everything below is scoped to that workspace
// and a campaign from another workspace is indistinguishable from a missing
// one.
package api

import (
	"context"
	"net/http"

	"github.com/relaycrm/campaign-engine/internal/pkg/httputil"
)

type contextKey string

const (
	workspaceKey contextKey = "workspace_id"
	actorKey     contextKey = "actor"
)

// WorkspaceHeader is set by the authenticating gateway.
const WorkspaceHeader = "X-Workspace-ID"

// ActorHeader carries the authenticated principal for audit records.
const ActorHeader = "X-Actor"

// RequireWorkspace rejects requests without a workspace and stores the
// workspace and actor on the context.
func RequireWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workspaceID := r.Header.Get(WorkspaceHeader)
		if workspaceID == "" {
			httputil.Error(w, http.StatusUnauthorized, "missing workspace")
			return
		}
		ctx := context.WithValue(r.Context(), workspaceKey, workspaceID)
		if actor := r.Header.Get(ActorHeader); actor != "" {
			ctx = context.WithValue(ctx, actorKey, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Workspace returns the request's workspace ID.
func Workspace(r *http.Request) string {
	id, _ := r.Context().Value(workspaceKey).(string)
	return id
}

// Actor returns the authenticated principal, or "unknown" when the gateway
// did not forward one.
func Actor(r *http.Request) string {
	if actor, ok := r.Context().Value(actorKey).(string); ok {
		return actor
	}
	return "unknown"
}
