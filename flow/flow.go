// Package flow loads declarative call flows and applies them to a
// callhandle.Controller.
//
// A flow is an ordered list of rules. The first rule whose match entries
// agree with the webhook's event parameters supplies the steps, and each
// step becomes one call handle command.
package flow

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"callhandle-api/callhandle"
)

var (
	// ErrInvalidFlow wraps every validation failure.
	ErrInvalidFlow = errors.New("invalid flow")

	// ErrNoRule is returned when no rule matches the event.
	ErrNoRule = errors.New("no rule matches event")
)

// MatchAny matches any present, non-empty parameter.
const MatchAny = "*"

// Flow is one call flow definition, usually one YAML file.
type Flow struct {
	Name        string `yaml:"name"        json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Rules       []Rule `yaml:"rules"       json:"rules"`

	// Source is the file the flow was loaded from.
	Source string `yaml:"-" json:"source,omitempty"`
}

// Rule selects steps for events whose parameters equal every Match entry.
// A rule without entries always matches.
type Rule struct {
	Name  string            `yaml:"name"  json:"name,omitempty"`
	Match map[string]string `yaml:"match" json:"match,omitempty"`
	Steps []Step            `yaml:"steps" json:"steps"`
}

// Step describes one command. Which fields apply depends on Function.
// String fields may reference event parameters as ${name}.
type Step struct {
	Function string `yaml:"function" json:"function"`

	// Sleep, DropSession, SpeechToText, StartRecording. Omitted selects the
	// default; 0 is rendered as 0.
	Duration *int `yaml:"duration,omitempty" json:"duration,omitempty"`

	// SpeechToText, PlayTTS, PlayTranslate
	Language string `yaml:"language,omitempty" json:"language,omitempty"`

	// PlayFile, PlaySystem, PlayURL
	Type  string `yaml:"type,omitempty"  json:"type,omitempty"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
	URL   string `yaml:"url,omitempty"   json:"url,omitempty"`

	// PlayTTS, PlayTranslate
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
	Voice   string `yaml:"voice,omitempty"   json:"voice,omitempty"`

	// Play*
	DTMF   int     `yaml:"dtmf,omitempty"    json:"dtmf,omitempty"`
	Replay int     `yaml:"replay,omitempty"  json:"replay,omitempty"`
	NoDTMF *string `yaml:"no_dtmf,omitempty" json:"no_dtmf,omitempty"`

	HandleInterrupt bool `yaml:"handle_interrupt,omitempty" json:"handle_interrupt,omitempty"`

	// StartRecording, MakeCall
	RecordCallbackURL    string `yaml:"record_callback_url,omitempty"    json:"record_callback_url,omitempty"`
	RecordCallbackMethod string `yaml:"record_callback_method,omitempty" json:"record_callback_method,omitempty"`

	// MakeCall
	CalledParty    string  `yaml:"called_party,omitempty"     json:"called_party,omitempty"`
	CallingParty   *string `yaml:"calling_party,omitempty"    json:"calling_party,omitempty"`
	RecordCall     bool    `yaml:"record_call,omitempty"      json:"record_call,omitempty"`
	RecordWaitSync bool    `yaml:"record_wait_sync,omitempty" json:"record_wait_sync,omitempty"`
	RecordSplit    bool    `yaml:"record_split,omitempty"     json:"record_split,omitempty"`
	Ringtone       string  `yaml:"ringtone,omitempty"         json:"ringtone,omitempty"`

	// Extra holds every key but function of a step without a typed builder.
	Extra map[string]any `yaml:",inline" json:"extra,omitempty"`
}

// UnmarshalYAML decodes custom steps whole into Extra, so keys that share
// a name with a typed field are kept.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	type plain Step
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if isTypedFunction(p.Function) {
		*s = Step(p)
		return nil
	}

	var all map[string]any
	if err := node.Decode(&all); err != nil {
		return err
	}
	delete(all, "function")
	*s = Step{Function: p.Function, Extra: all}
	return nil
}

// Step function names accepted in addition to the wire function names.
const (
	stepPlaySystem = "PlaySystem"
	stepPlayURL    = "PlayURL"
)

func isTypedFunction(name string) bool {
	switch name {
	case callhandle.FunctionSleep, callhandle.FunctionDropSession, callhandle.FunctionSpeechToText,
		callhandle.FunctionStartRecording, callhandle.FunctionMakeCall, callhandle.FunctionPlayFile,
		callhandle.FunctionPlayTTS, callhandle.FunctionPlayTranslate, callhandle.FunctionHangup,
		stepPlaySystem, stepPlayURL:
		return true
	}
	return false
}

// Validate checks that the flow can be applied.
func (f *Flow) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidFlow)
	}
	if len(f.Rules) == 0 {
		return fmt.Errorf("%w: flow %q has no rules", ErrInvalidFlow, f.Name)
	}
	for i, rule := range f.Rules {
		if len(rule.Steps) == 0 {
			return fmt.Errorf("%w: flow %q rule %d has no steps", ErrInvalidFlow, f.Name, i)
		}
		for j, step := range rule.Steps {
			if err := step.validate(); err != nil {
				return fmt.Errorf("%w: flow %q rule %d step %d: %v", ErrInvalidFlow, f.Name, i, j, err)
			}
		}
	}
	return nil
}

func (s *Step) validate() error {
	var missing string
	switch s.Function {
	case "":
		return errors.New("function is required")
	case callhandle.FunctionSpeechToText:
		if s.Language == "" {
			missing = "language"
		}
	case callhandle.FunctionMakeCall:
		if s.CalledParty == "" {
			missing = "called_party"
		}
	case callhandle.FunctionPlayFile:
		switch s.Type {
		case "", callhandle.PlayTypeFile, callhandle.PlayTypeSystem:
			if s.Value == "" {
				missing = "value"
			}
		case callhandle.PlayTypeURL:
			if s.Value == "" && s.URL == "" {
				missing = "url"
			}
		default:
			return fmt.Errorf("unknown play type %q", s.Type)
		}
	case stepPlaySystem:
		if s.Value == "" {
			missing = "value"
		}
	case stepPlayURL:
		if s.URL == "" {
			missing = "url"
		}
	case callhandle.FunctionPlayTTS, callhandle.FunctionPlayTranslate:
		if s.Message == "" {
			missing = "message"
		}
	}
	if missing != "" {
		return fmt.Errorf("%s requires %s", s.Function, missing)
	}
	return nil
}
