package flow

import (
	"fmt"
	"os"
	"strconv"

	"callhandle-api/callhandle"
)

// Template-only parameter names.
const (
	paramDefaultCallingParty = "default_calling_party"
	paramSIPURI              = "sip_login"
)

// Match returns the first rule matching the event.
func (f *Flow) Match(p *callhandle.EventParams) (*Rule, error) {
	for i := range f.Rules {
		if f.Rules[i].Matches(p) {
			return &f.Rules[i], nil
		}
	}
	return nil, fmt.Errorf("flow %q: %w", f.Name, ErrNoRule)
}

// Matches reports whether every match entry agrees with the event.
func (r *Rule) Matches(p *callhandle.EventParams) bool {
	for name, want := range r.Match {
		got, err := paramValue(p, name)
		if err != nil {
			return false
		}
		if want == MatchAny {
			if got == "" {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

// Apply adds the steps of the matching rule to c and returns that rule.
// It returns the controller's error if any step could not be built.
func (f *Flow) Apply(c *callhandle.Controller) (*Rule, error) {
	rule, err := f.Match(c.Params())
	if err != nil {
		return nil, err
	}
	for i := range rule.Steps {
		if err := rule.Steps[i].apply(c); err != nil {
			return rule, fmt.Errorf("flow %q rule %q step %d: %w", f.Name, rule.Name, i, err)
		}
	}
	if err := c.Err(); err != nil {
		return rule, fmt.Errorf("flow %q rule %q: %w", f.Name, rule.Name, err)
	}
	return rule, nil
}

// expander substitutes ${name} references. The first required parameter
// that cannot be resolved is kept in err.
type expander struct {
	params *callhandle.EventParams
	err    error
}

func (x *expander) expand(v string) string {
	return os.Expand(v, func(name string) string {
		val, err := paramValue(x.params, name)
		if err != nil && x.err == nil {
			x.err = err
		}
		return val
	})
}

// apply adds the step's command to c. Templates are expanded before
// anything is added, so a step that references a missing required
// parameter adds nothing.
func (s *Step) apply(c *callhandle.Controller) error {
	x := &expander{params: c.Params()}
	add := s.builder(c, x.expand)
	if x.err != nil {
		return x.err
	}
	add()
	return nil
}

func (s *Step) builder(c *callhandle.Controller, expand func(string) string) func() {
	switch s.Function {
	case callhandle.FunctionSleep:
		return func() { c.Sleep(s.seconds()) }
	case callhandle.FunctionDropSession:
		return func() { c.DropSession(s.seconds()) }
	case callhandle.FunctionSpeechToText:
		language := expand(s.Language)
		return func() { c.SpeechToText(language, s.HandleInterrupt, s.seconds()) }
	case callhandle.FunctionStartRecording:
		callbackURL := expand(s.RecordCallbackURL)
		return func() { c.StartRecording(s.seconds(), callbackURL, s.RecordCallbackMethod) }
	case callhandle.FunctionMakeCall:
		called, opts := expand(s.CalledParty), s.callOptions(expand)
		return func() { c.MakeCall(called, opts...) }
	case callhandle.FunctionPlayFile:
		switch s.Type {
		case callhandle.PlayTypeSystem:
			return s.playBuilder(c.PlaySystem, s.Value, expand)
		case callhandle.PlayTypeURL:
			url := s.URL
			if url == "" {
				url = s.Value
			}
			return s.playBuilder(c.PlayURL, url, expand)
		default:
			return s.playBuilder(c.PlayFile, s.Value, expand)
		}
	case stepPlaySystem:
		return s.playBuilder(c.PlaySystem, s.Value, expand)
	case stepPlayURL:
		return s.playBuilder(c.PlayURL, s.URL, expand)
	case callhandle.FunctionPlayTTS:
		return s.playBuilder(c.PlayTTS, s.Message, expand)
	case callhandle.FunctionPlayTranslate:
		return s.playBuilder(c.PlayTranslate, s.Message, expand)
	case callhandle.FunctionHangup:
		return func() { c.Hangup() }
	default:
		cmd := callhandle.CustomCommand{"function": s.Function}
		for k, v := range s.Extra {
			cmd[k] = expandValue(v, expand)
		}
		return func() { c.AddCommand(cmd) }
	}
}

func (s *Step) playBuilder(play func(string, ...callhandle.PlayOption) *callhandle.Controller, value string, expand func(string) string) func() {
	value, opts := expand(value), s.playOptions(expand)
	return func() { play(value, opts...) }
}

// seconds maps an explicit duration of 0 to callhandle.ZeroSeconds; an
// omitted duration selects the builder's default.
func (s *Step) seconds() int {
	switch {
	case s.Duration == nil:
		return 0
	case *s.Duration == 0:
		return callhandle.ZeroSeconds
	}
	return *s.Duration
}

// expandValue expands strings at any depth of a decoded YAML value.
func expandValue(v any, expand func(string) string) any {
	switch t := v.(type) {
	case string:
		return expand(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = expandValue(e, expand)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = expandValue(e, expand)
		}
		return out
	}
	return v
}

func (s *Step) playOptions(expand func(string) string) []callhandle.PlayOption {
	opts := []callhandle.PlayOption{
		callhandle.WithDTMF(s.DTMF),
		callhandle.WithHandleInterrupt(s.HandleInterrupt),
		callhandle.WithReplay(s.Replay),
	}
	if s.NoDTMF != nil {
		opts = append(opts, callhandle.WithNoDTMF(expand(*s.NoDTMF)))
	}
	if s.Language != "" {
		opts = append(opts, callhandle.WithLanguage(expand(s.Language)))
	}
	if s.Voice != "" {
		opts = append(opts, callhandle.WithVoice(callhandle.Voice(s.Voice)))
	}
	return opts
}

func (s *Step) callOptions(expand func(string) string) []callhandle.CallOption {
	opts := []callhandle.CallOption{
		callhandle.WithInterrupt(s.HandleInterrupt),
		callhandle.WithRecording(s.RecordCall),
		callhandle.WithRecordCallback(expand(s.RecordCallbackURL), s.RecordCallbackMethod),
		callhandle.WithRecordWaitSync(s.RecordWaitSync),
		callhandle.WithRingtone(callhandle.Ringtone(s.Ringtone)),
		callhandle.WithRecordSplit(s.RecordSplit),
	}
	if s.CallingParty != nil {
		opts = append(opts, callhandle.WithCallingParty(expand(*s.CallingParty)))
	}
	return opts
}

// paramValue resolves a parameter name as seen by rules and templates.
// A few names go through the typed accessors so their defaults apply. The
// party names fail with callhandle.ErrMissingField when they cannot be
// resolved; any other absent parameter is "".
func paramValue(p *callhandle.EventParams, name string) (string, error) {
	switch name {
	case callhandle.ParamCallType:
		return p.CallType(), nil
	case callhandle.ParamCallConnected:
		return strconv.FormatBool(p.IsCallConnected()), nil
	case callhandle.ParamNumber:
		return p.PhoneNumber()
	case callhandle.ParamCallingParty:
		return p.CallingParty()
	case callhandle.ParamCalledParty:
		return p.CalledParty()
	case paramDefaultCallingParty:
		return p.DefaultCallingParty()
	case paramSIPURI:
		return p.SIPLogin(true), nil
	default:
		return p.Get(name, ""), nil
	}
}
