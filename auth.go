package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	allowedFlowsKey contextKey = "allowedFlows"
	WILDCARD_FLOW              = "*"
)

// Flow authorization set by an upstream proxy in X-Allowed-Flows
type flowAuth struct {
	Flows        []string
	Unrestricted bool
}

// isUnrestrictedAccess checks if the request may use every flow
func isUnrestrictedAccess(r *http.Request) bool {
	if auth, ok := r.Context().Value(allowedFlowsKey).(flowAuth); ok {
		return auth.Unrestricted
	}
	return true // Default to unrestricted if not set
}

// getAllowedFlows returns the list of allowed flows from the request
func getAllowedFlows(r *http.Request) []string {
	if auth, ok := r.Context().Value(allowedFlowsKey).(flowAuth); ok {
		return auth.Flows
	}
	return nil
}

func isFlowAllowed(r *http.Request, name string) bool {
	if isUnrestrictedAccess(r) {
		return true
	}
	for _, allowed := range getAllowedFlows(r) {
		if name == allowed {
			return true
		}
	}
	return false
}

// filterAllowedFlows keeps the names the request may see
func filterAllowedFlows(r *http.Request, names []string) []string {
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if isFlowAllowed(r, name) {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

// validateFlowAccess returns true if the request may run the flow,
// or responds with 403 and returns false
func (h *APIHandler) validateFlowAccess(w http.ResponseWriter, r *http.Request, name string) bool {
	if isFlowAllowed(r, name) {
		return true
	}

	allowedList := strings.Join(getAllowedFlows(r), ", ")
	h.respondError(w, r,
		fmt.Sprintf("Flow '%s' is not in your allowed flows: [%s]", name, allowedList),
		http.StatusForbidden)
	return false
}

// flowAuthMiddleware extracts X-Allowed-Flows header and stores it in request context
func flowAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("X-Allowed-Flows")

		var allowedFlows []string
		isUnrestricted := false

		if header == "" {
			// No header = unrestricted
			isUnrestricted = true
		} else {
			for _, name := range strings.Split(header, ",") {
				trimmed := strings.TrimSpace(name)
				if trimmed == "" {
					continue
				}
				if trimmed == WILDCARD_FLOW {
					isUnrestricted = true
					break
				}
				allowedFlows = append(allowedFlows, trimmed)
			}
		}

		auth := flowAuth{
			Flows:        allowedFlows,
			Unrestricted: isUnrestricted,
		}

		ctx := context.WithValue(r.Context(), allowedFlowsKey, auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
