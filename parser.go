package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"callhandle-api/callhandle"
)

var errMalformedEvent = errors.New("malformed event parameters")

// parseEventRequest extracts the webhook's event parameters. The platform
// sends URL-encoded form data in the body of a POST and in the query string
// of a GET; for POST the query string is ignored.
func parseEventRequest(r *http.Request) (*callhandle.EventParams, error) {
	var raw string

	if r.Method == http.MethodPost {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		raw = string(body)
	} else {
		raw = r.URL.RawQuery
	}

	params, err := callhandle.ParseEventParams(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	return params, nil
}

var knownCallStatuses = map[string]bool{
	callhandle.CallStatusSetup:        true,
	callhandle.CallStatusAlert:        true,
	callhandle.CallStatusDisconnect:   true,
	callhandle.CallStatusDTMF:         true,
	callhandle.CallStatusSpeechToText: true,
	callhandle.CallStatusRecord:       true,
	callhandle.CallStatusRecordStart:  true,
	callhandle.CallStatusRecordEnd:    true,
}

// callStatusLabel maps call_status to a bounded set for metric labels.
// Absent is "NONE"; anything unrecognised is "OTHER".
func callStatusLabel(params *callhandle.EventParams) string {
	if params == nil {
		return "NONE"
	}
	status, ok := params.CallStatus()
	if !ok {
		return "NONE"
	}
	if knownCallStatuses[status] {
		return status
	}
	return "OTHER"
}
