package main

import "callhandle-api/flow"

// Request/Response Structures
type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type FlowSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Rules       int    `json:"rules"`
	Source      string `json:"source,omitempty"`
}

type FlowListResponse struct {
	Status string        `json:"status"`
	Count  int           `json:"count"`
	Flows  []FlowSummary `json:"flows"`
}

type FlowResponse struct {
	Status string     `json:"status"`
	Flow   *flow.Flow `json:"flow"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	FlowsLoaded int    `json:"flows_loaded"`
	DefaultFlow string `json:"default_flow"`
	Error       string `json:"error,omitempty"`
}
