// Package callhandle builds call handle command responses for the call
// control platform's webhooks.
//
// EventParams wraps the parameters of one inbound webhook. Controller
// accumulates commands in execution order and renders them as
// {"commands":[...]}.
package callhandle

import (
	"fmt"
	"net/url"
	"strings"
)

// EventParams holds the event parameters of a single webhook request.
// It is read-only after construction.
type EventParams struct {
	values map[string]string
}

// NewEventParams copies values into a new EventParams.
func NewEventParams(values map[string]string) *EventParams {
	p := &EventParams{values: make(map[string]string, len(values))}
	for k, v := range values {
		p.values[k] = v
	}
	return p
}

// ParseEventParams parses URL-encoded form text, as found in a POST body or
// a GET query string. When a name repeats, the last value wins.
func ParseEventParams(raw string) (*EventParams, error) {
	parsed, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("parse event parameters: %w", err)
	}

	p := &EventParams{values: make(map[string]string, len(parsed))}
	for k, vs := range parsed {
		if len(vs) == 0 {
			continue
		}
		p.values[k] = vs[len(vs)-1]
	}
	return p, nil
}

// Get returns the named parameter, or def when it is absent.
func (p *EventParams) Get(name, def string) string {
	if v, ok := p.values[name]; ok {
		return v
	}
	return def
}

// Lookup returns the named parameter and whether it was sent.
func (p *EventParams) Lookup(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Values returns a copy of all parameters.
func (p *EventParams) Values() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Len returns the number of parameters.
func (p *EventParams) Len() int {
	return len(p.values)
}

// CallType returns call_type, defaulting to PSTN.
func (p *EventParams) CallType() string {
	return p.Get(ParamCallType, CallTypePSTN)
}

// CallStatus returns call_status. ok is false when the platform did not send one.
func (p *EventParams) CallStatus() (status string, ok bool) {
	return p.Lookup(ParamCallStatus)
}

// CallCause returns call_cause. ok is false when the platform did not send one.
func (p *EventParams) CallCause() (cause string, ok bool) {
	return p.Lookup(ParamCallCause)
}

// PhoneNumber returns the number parameter.
func (p *EventParams) PhoneNumber() (string, error) {
	return p.required(ParamNumber)
}

// DTMF returns the captured digits, or "".
func (p *EventParams) DTMF() string {
	return p.Get(ParamDTMF, "")
}

// CallingParty returns calling_party.
func (p *EventParams) CallingParty() (string, error) {
	return p.required(ParamCallingParty)
}

// CalledParty returns called_party.
func (p *EventParams) CalledParty() (string, error) {
	return p.required(ParamCalledParty)
}

// SIPCallerNumber returns voip_caller_number, or "".
func (p *EventParams) SIPCallerNumber() string {
	return p.Get(ParamVOIPCallerNumber, "")
}

// SIPLogin returns voip_login, or "". With addSchemeTag a non-empty login
// is returned as a sip: URI.
func (p *EventParams) SIPLogin(addSchemeTag bool) string {
	login := p.Get(ParamVOIPLogin, "")
	if addSchemeTag && login != "" {
		return "sip:" + login
	}
	return login
}

// IsCallConnected reports whether call_connected is set to a true value.
// Absent, empty, "0" and "false" are false. "false" is false here even
// though loosely typed form handlers often treat any non-empty string other
// than "0" as true.
func (p *EventParams) IsCallConnected() bool {
	v, ok := p.values[ParamCallConnected]
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false":
		return false
	}
	return true
}

// DefaultCallingParty resolves the caller identity to present on an
// outbound leg, based on the call type:
//
//	P2I         calling_party
//	IP_FORWARD  voip_caller_number, falling back to calling_party
//	otherwise   number
func (p *EventParams) DefaultCallingParty() (string, error) {
	switch p.CallType() {
	case CallTypeP2I:
		return p.CallingParty()
	case CallTypeIPForward:
		if sipCLI := p.SIPCallerNumber(); sipCLI != "" {
			return sipCLI, nil
		}
		return p.CallingParty()
	default:
		return p.PhoneNumber()
	}
}

func (p *EventParams) required(name string) (string, error) {
	v, ok := p.values[name]
	if !ok {
		return "", &MissingFieldError{Field: name}
	}
	return v, nil
}
