package callhandle

import (
	"encoding/json"
	"fmt"
)

// Command is one call handle command. Implementations marshal to the exact
// object the platform expects for their function.
type Command interface {
	FunctionName() string
}

// DurationCommand carries Sleep and DropSession.
type DurationCommand struct {
	Function string `json:"function"`
	Duration int    `json:"duration"`
}

func (c DurationCommand) FunctionName() string { return c.Function }

// SpeechToTextCommand records the caller and transcribes the speech.
type SpeechToTextCommand struct {
	Function        string `json:"function"`
	Duration        int    `json:"duration"`
	HandleInterrupt bool   `json:"handle_interrupt"`
	Language        string `json:"language"`
}

func (c SpeechToTextCommand) FunctionName() string { return c.Function }

// StartRecordingCommand records the current channel.
type StartRecordingCommand struct {
	Function             string `json:"function"`
	Duration             int    `json:"duration"`
	RecordCallbackMethod string `json:"record_callback_method"`
	RecordCallbackURL    string `json:"record_callback_url"`
}

func (c StartRecordingCommand) FunctionName() string { return c.Function }

// MakeCallCommand dials an outbound leg.
type MakeCallCommand struct {
	Function             string   `json:"function"`
	CalledParty          string   `json:"called_party"`
	CallingParty         string   `json:"calling_party"`
	RecordCall           bool     `json:"record_call"`
	RecordCallbackMethod string   `json:"record_callback_method"`
	RecordCallbackURL    string   `json:"record_callback_url"`
	HandleInterrupt      bool     `json:"handle_interrupt"`
	Ringtone             Ringtone `json:"ringtone"`
	RecordWaitSync       bool     `json:"record_wait_sync"`
	RecordSplit          bool     `json:"record_split"`
}

func (c MakeCallCommand) FunctionName() string { return c.Function }

// PlayCommand plays stored, system or remote media. Function is always
// PlayFile; Type tells the three apart.
type PlayCommand struct {
	Function        string `json:"function"`
	Type            string `json:"type"`
	Value           string `json:"value"`
	DTMF            int    `json:"dtmf"`
	HandleInterrupt bool   `json:"handle_interrupt"`
	Replay          int    `json:"replay"`
	NoDTMFValue     string `json:"no_dtmf_value"`
}

func (c PlayCommand) FunctionName() string { return c.Function }

// SpeechCommand carries PlayTTS and PlayTranslate. The platform expects
// handle_interrupt as the string "true" or "false" for these two.
type SpeechCommand struct {
	Function        string     `json:"function"`
	Message         string     `json:"message"`
	Voice           Voice      `json:"voice"`
	Language        string     `json:"language"`
	DTMF            int        `json:"dtmf"`
	HandleInterrupt StringBool `json:"handle_interrupt"`
	Replay          int        `json:"replay"`
	NoDTMFMessage   string     `json:"no_dtmf_message"`
}

func (c SpeechCommand) FunctionName() string { return c.Function }

// HangupCommand ends the call.
type HangupCommand struct {
	Function string `json:"function"`
}

func (c HangupCommand) FunctionName() string { return c.Function }

// CustomCommand is a free-form command for functions without a typed
// builder. It must carry a "function" key.
type CustomCommand map[string]any

func (c CustomCommand) FunctionName() string {
	name, _ := c["function"].(string)
	return name
}

// StringBool is a bool encoded as the JSON string "true" or "false".
type StringBool bool

func (b StringBool) MarshalJSON() ([]byte, error) {
	if b {
		return []byte(`"true"`), nil
	}
	return []byte(`"false"`), nil
}

func (b *StringBool) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("handle_interrupt: %w", err)
		}
		*b = StringBool(v)
		return nil
	}
	switch s {
	case "true":
		*b = true
	case "false":
		*b = false
	default:
		return fmt.Errorf("handle_interrupt: invalid value %q", s)
	}
	return nil
}
