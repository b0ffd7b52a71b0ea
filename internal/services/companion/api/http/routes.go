// Package http exposes the companion operations as a JSON API.
package http

import (
	"net/http"
	"strings"
)

// Route paths served by this API.
const (
	PathUsers           = "/v1/users"
	PathUsersMe         = "/v1/users/me"
	PathUsersTutorials  = "/v1/users/me/tutorials"
	PathCompanion       = "/v1/companion"
	PathCompanionPrefix = "/v1/companion/"
)

// Companion subresources under PathCompanionPrefix.
const (
	subresourceActions     = "actions"
	subresourceChat        = "chat"
	subresourceDailyReward = "daily-reward"
)

// NewHandler wires all companion routes behind identity verification.
func NewHandler(service Service, auth VerifierConfig) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, service)
	return RequireIdentity(auth, mux)
}

// RegisterRoutes wires companion routes into the provided mux.
func RegisterRoutes(mux *http.ServeMux, service Service) {
	if mux == nil || service == nil {
		return
	}
	h := &handler{service: service}
	mux.HandleFunc(PathUsers, h.handleUsers)
	mux.HandleFunc(PathUsersMe, h.handleUsersMe)
	mux.HandleFunc(PathUsersTutorials, h.handleTutorials)
	mux.HandleFunc(PathCompanion, h.handleCompanion)
	mux.HandleFunc(PathCompanionPrefix, h.handleCompanionPath)
}

// handleCompanionPath parses companion subroutes and dispatches to handlers.
func (h *handler) handleCompanionPath(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, PathCompanionPrefix)
	parts := splitPathParts(path)

	switch {
	case len(parts) == 1:
		h.handleCompanionByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == subresourceActions:
		h.handleApplyAction(w, r, parts[0])
	case len(parts) == 2 && parts[1] == subresourceChat:
		h.handleChat(w, r, parts[0])
	case len(parts) == 2 && parts[1] == subresourceDailyReward:
		h.handleDailyReward(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func splitPathParts(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
