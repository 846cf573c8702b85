package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"callhandle-api/callhandle"
	"callhandle-api/flow"
)

// Context keys
type contextKey string

const (
	requestIDKey contextKey = "requestID"
	loggerKey    contextKey = "logger"
)

func withRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func getRequestID(r *http.Request) string {
	if reqID, ok := r.Context().Value(requestIDKey).(string); ok {
		return reqID
	}
	return "unknown"
}

// API Handlers
type APIHandler struct {
	flows       *flow.Registry
	defaultFlow string
}

func NewAPIHandler(flows *flow.Registry, defaultFlow string) *APIHandler {
	return &APIHandler{
		flows:       flows,
		defaultFlow: defaultFlow,
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", getRequestID(r))
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logError(r, "Failed to encode response", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	if statusCode >= 500 {
		logError(r, message, nil, zap.Int("status", statusCode))
	} else {
		logWarn(r, message, zap.Int("status", statusCode))
	}

	writeJSON(w, r, statusCode, ErrorResponse{
		Status:  "error",
		Message: message,
	})
}

func (h *APIHandler) respondSuccess(w http.ResponseWriter, r *http.Request, message string) {
	logInfo(r, message)
	writeJSON(w, r, http.StatusOK, SuccessResponse{
		Status:  "success",
		Message: message,
	})
}

func (h *APIHandler) respondError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	writeError(w, r, message, statusCode)
}

// Helper to determine appropriate HTTP status code based on error
func (h *APIHandler) getErrorStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errMalformedEvent):
		return http.StatusBadRequest
	// The platform cannot execute a response built without a required party
	case errors.Is(err, callhandle.ErrMissingField), errors.Is(err, flow.ErrNoRule),
		errors.Is(err, flow.ErrInvalidFlow):
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, flow.ErrNoRule):
		return resultNoRule
	case errors.Is(err, errMalformedEvent):
		return resultBadRequest
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return resultBadRequest
	}
	return resultFailed
}

// GET|POST /v1/webhook
func (h *APIHandler) DefaultWebhook(w http.ResponseWriter, r *http.Request) {
	h.runFlow(w, r, h.defaultFlow)
}

// GET|POST /v1/flows/{name}/webhook
func (h *APIHandler) FlowWebhook(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := validateFlowName(name); err != nil {
		h.respondError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	h.runFlow(w, r, name)
}

// runFlow answers a webhook with the commands of the matching flow rule.
// Once the response is rendered nothing else may be written.
func (h *APIHandler) runFlow(w http.ResponseWriter, r *http.Request, name string) {
	start := time.Now()
	status := "NONE"

	f, ok := h.flows.Get(name)
	label := name
	if !ok {
		// Request paths must not mint label values
		label = unknownFlowLabel
	}

	if !h.validateFlowAccess(w, r, name) {
		recordWebhook(label, status, resultForbidden, time.Since(start))
		return
	}

	if !ok {
		h.respondError(w, r, fmt.Sprintf("Flow %s not found", name), http.StatusNotFound)
		recordWebhook(label, status, resultUnknownFlow, time.Since(start))
		return
	}

	params, err := parseEventRequest(r)
	if err != nil {
		h.respondError(w, r, fmt.Sprintf("Invalid event parameters: %v", err), h.getErrorStatusCode(err))
		recordWebhook(label, status, resultLabel(err), time.Since(start))
		return
	}
	status = callStatusLabel(params)

	reqLogger := requestLogger(r).With(zap.String("flow", name), zap.String("call_type", params.CallType()))
	ctl := callhandle.NewController(params,
		callhandle.WithLogger(reqLogger),
		callhandle.OnCommand(observeCommand),
	)

	rule, err := f.Apply(ctl)
	if err != nil {
		h.respondError(w, r, fmt.Sprintf("Failed to build response: %v", err), h.getErrorStatusCode(err))
		recordWebhook(label, status, resultLabel(err), time.Since(start))
		return
	}

	w.Header().Set("X-Request-ID", getRequestID(r))
	if err := ctl.Render(w); err != nil {
		// Headers may already be sent; only log
		reqLogger.Error("Failed to render response", zap.Error(err))
		recordWebhook(label, status, resultFailed, time.Since(start))
		return
	}

	recordRendered(ctl.Commands())
	recordWebhook(label, status, resultRendered, time.Since(start))
	reqLogger.Info("Webhook answered",
		zap.String("rule", rule.Name),
		zap.String("call_status", status),
		zap.Int("commands", ctl.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// GET /v1/flows
func (h *APIHandler) ListFlows(w http.ResponseWriter, r *http.Request) {
	names := filterAllowedFlows(r, h.flows.Names())

	summaries := make([]FlowSummary, 0, len(names))
	for _, name := range names {
		f, ok := h.flows.Get(name)
		if !ok {
			// Removed by a reload since Names
			continue
		}
		summaries = append(summaries, FlowSummary{
			Name:        f.Name,
			Description: f.Description,
			Rules:       len(f.Rules),
			Source:      f.Source,
		})
	}

	logInfo(r, "Listed flows", zap.Int("count", len(summaries)))
	writeJSON(w, r, http.StatusOK, FlowListResponse{
		Status: "success",
		Count:  len(summaries),
		Flows:  summaries,
	})
}

// GET /v1/flows/{name}
func (h *APIHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := validateFlowName(name); err != nil {
		h.respondError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.validateFlowAccess(w, r, name) {
		return
	}

	f, ok := h.flows.Get(name)
	if !ok {
		h.respondError(w, r, fmt.Sprintf("Flow %s not found", name), http.StatusNotFound)
		return
	}

	writeJSON(w, r, http.StatusOK, FlowResponse{
		Status: "success",
		Flow:   f,
	})
}

// POST /v1/flows/reload
func (h *APIHandler) ReloadFlows(w http.ResponseWriter, r *http.Request) {
	if !isUnrestrictedAccess(r) {
		h.respondError(w, r, "Reloading flows requires access to all flows", http.StatusForbidden)
		return
	}

	n, err := h.flows.LoadAll()
	if err != nil {
		h.respondError(w, r, fmt.Sprintf("Failed to reload flows: %v", err), h.getErrorStatusCode(err))
		return
	}

	h.respondSuccess(w, r, fmt.Sprintf("Loaded %d flows from %s", n, h.flows.Dir()))
}

// GET /health
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "healthy",
		Version:     Version,
		FlowsLoaded: h.flows.Len(),
		DefaultFlow: h.defaultFlow,
	}

	if _, ok := h.flows.Get(h.defaultFlow); !ok {
		resp.Status = "unhealthy"
		resp.Error = fmt.Sprintf("default flow %s is not loaded", h.defaultFlow)
		writeJSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, r, http.StatusOK, resp)
}
