package callhandle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// ErrNoFunction is recorded when a command without a function name is added.
var ErrNoFunction = errors.New("command has no function")

// State is the lifecycle stage of a Controller.
type State int

const (
	// StateAccumulating accepts commands and may be serialized any number of times.
	StateAccumulating State = iota
	// StateRendered has emitted its response. Nothing may follow.
	StateRendered
)

func (s State) String() string {
	switch s {
	case StateAccumulating:
		return "accumulating"
	case StateRendered:
		return "rendered"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Controller accumulates call handle commands for one webhook response.
// Commands execute on the platform in the order they are added.
//
// Add methods return the Controller for chaining. The first failure is kept
// and returned by Err, JSON and Render; later adds still append.
// A Controller is not safe for concurrent use.
type Controller struct {
	params   *EventParams
	commands []Command
	state    State
	err      error
	logger   *zap.Logger
	hooks    []func(Command)
}

type response struct {
	Commands []Command `json:"commands"`
}

// NewController returns an empty Controller for the given event.
func NewController(params *EventParams, opts ...Option) *Controller {
	if params == nil {
		params = NewEventParams(nil)
	}
	c := &Controller{
		params:   params,
		commands: make([]Command, 0),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Params returns the event parameters the controller was built for.
func (c *Controller) Params() *EventParams { return c.params }

// State returns the lifecycle stage.
func (c *Controller) State() State { return c.state }

// Err returns the first error recorded while adding commands.
func (c *Controller) Err() error { return c.err }

// Len returns the number of accumulated commands.
func (c *Controller) Len() int { return len(c.commands) }

// Commands returns a copy of the accumulated commands in order.
func (c *Controller) Commands() []Command {
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

// AddCommand appends a command. It is the single path every builder method
// goes through.
func (c *Controller) AddCommand(cmd Command) *Controller {
	if c.state == StateRendered {
		c.setErr(ErrRendered)
		return c
	}
	if cmd == nil || cmd.FunctionName() == "" {
		c.setErr(ErrNoFunction)
		return c
	}
	c.commands = append(c.commands, cmd)
	for _, hook := range c.hooks {
		hook(cmd)
	}
	return c
}

// Sleep delays the next command. seconds 0 selects 1 second; pass
// ZeroSeconds for no delay.
func (c *Controller) Sleep(seconds int) *Controller {
	return c.AddCommand(DurationCommand{
		Function: FunctionSleep,
		Duration: orDefault(seconds, DefaultSleepSeconds),
	})
}

// DropSession keeps the session for seconds and then drops it. seconds 0
// selects 30 seconds and ZeroSeconds drops it at once.
func (c *Controller) DropSession(seconds int) *Controller {
	return c.AddCommand(DurationCommand{
		Function: FunctionDropSession,
		Duration: orDefault(seconds, DefaultDropSessionSeconds),
	})
}

// SpeechToText transcribes the caller's speech in language. With
// handleInterrupt the platform sends a SPEECH_TO_TEXT event. seconds 0
// selects 30 seconds.
func (c *Controller) SpeechToText(language string, handleInterrupt bool, seconds int) *Controller {
	return c.AddCommand(SpeechToTextCommand{
		Function:        FunctionSpeechToText,
		Duration:        orDefault(seconds, DefaultSpeechSeconds),
		HandleInterrupt: handleInterrupt,
		Language:        language,
	})
}

// StartRecording records the current channel. seconds 0 selects 30
// seconds and an empty method selects GET.
func (c *Controller) StartRecording(seconds int, callbackURL, callbackMethod string) *Controller {
	if callbackMethod == "" {
		callbackMethod = DefaultCallbackMethod
	}
	return c.AddCommand(StartRecordingCommand{
		Function:             FunctionStartRecording,
		Duration:             orDefault(seconds, DefaultRecordSeconds),
		RecordCallbackMethod: callbackMethod,
		RecordCallbackURL:    callbackURL,
	})
}

// MakeCall dials calledParty. Unless WithCallingParty is given, the caller
// ID comes from EventParams.DefaultCallingParty; if that cannot be resolved
// nothing is appended and the error is recorded.
func (c *Controller) MakeCall(calledParty string, opts ...CallOption) *Controller {
	s := callSettings{cmd: MakeCallCommand{
		Function:             FunctionMakeCall,
		CalledParty:          calledParty,
		RecordCallbackMethod: DefaultCallbackMethod,
	}}
	for _, opt := range opts {
		opt(&s)
	}

	if s.callingParty != nil {
		s.cmd.CallingParty = *s.callingParty
	} else {
		caller, err := c.params.DefaultCallingParty()
		if err != nil {
			c.setErr(fmt.Errorf("make call to %s: %w", calledParty, err))
			return c
		}
		s.cmd.CallingParty = caller
	}

	return c.AddCommand(s.cmd)
}

// PlayFile plays a wave file from media storage.
func (c *Controller) PlayFile(name string, opts ...PlayOption) *Controller {
	return c.play(PlayTypeFile, name, opts)
}

// PlaySystem plays a system sound such as "beep".
func (c *Controller) PlaySystem(name string, opts ...PlayOption) *Controller {
	return c.play(PlayTypeSystem, name, opts)
}

// PlayURL plays publicly reachable media.
func (c *Controller) PlayURL(url string, opts ...PlayOption) *Controller {
	return c.play(PlayTypeURL, url, opts)
}

// PlayTTS speaks message with text to speech.
func (c *Controller) PlayTTS(message string, opts ...PlayOption) *Controller {
	return c.speak(FunctionPlayTTS, message, opts)
}

// PlayTranslate translates message into the chosen language and speaks it.
func (c *Controller) PlayTranslate(message string, opts ...PlayOption) *Controller {
	return c.speak(FunctionPlayTranslate, message, opts)
}

// Hangup ends the call.
func (c *Controller) Hangup() *Controller {
	return c.AddCommand(HangupCommand{Function: FunctionHangup})
}

// JSON serializes the accumulated commands without changing state. It may be
// called repeatedly; each call reflects the commands added so far.
func (c *Controller) JSON() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(response{Commands: c.commands}); err != nil {
		return nil, fmt.Errorf("encode commands: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Render writes the response to w and moves the controller to
// StateRendered. When w is an http.ResponseWriter the content type and a
// 200 status are set. The caller must not add further commands.
func (c *Controller) Render(w io.Writer) error {
	if c.state == StateRendered {
		return ErrRendered
	}

	body, err := c.JSON()
	if err != nil {
		return err
	}
	c.state = StateRendered

	if rw, ok := w.(http.ResponseWriter); ok {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write commands: %w", err)
	}
	return nil
}

func (c *Controller) play(kind, value string, opts []PlayOption) *Controller {
	s := newPlaySettings(opts)
	c.checkDTMF(FunctionPlayFile, s.dtmf)

	noDTMF := value
	if s.noDTMF != nil && *s.noDTMF != "" {
		noDTMF = *s.noDTMF
	}

	return c.AddCommand(PlayCommand{
		Function:        FunctionPlayFile,
		Type:            kind,
		Value:           value,
		DTMF:            s.dtmf,
		HandleInterrupt: s.handleInterrupt,
		Replay:          s.replay,
		NoDTMFValue:     noDTMF,
	})
}

// speak differs from play in the no-DTMF default: an explicit empty
// message is kept.
func (c *Controller) speak(function, message string, opts []PlayOption) *Controller {
	s := newPlaySettings(opts)
	c.checkDTMF(function, s.dtmf)

	noDTMF := message
	if s.noDTMF != nil {
		noDTMF = *s.noDTMF
	}

	return c.AddCommand(SpeechCommand{
		Function:        function,
		Message:         message,
		Voice:           s.voice,
		Language:        s.language,
		DTMF:            s.dtmf,
		HandleInterrupt: StringBool(s.handleInterrupt),
		Replay:          s.replay,
		NoDTMFMessage:   noDTMF,
	})
}

func (c *Controller) checkDTMF(function string, digits int) {
	if DTMFInRange(digits) {
		return
	}
	c.logger.Warn("dtmf digit count outside documented range",
		zap.String("function", function),
		zap.Int("dtmf", digits),
		zap.Int("max", MaxDTMF),
	)
}

func (c *Controller) setErr(err error) {
	if c.err == nil {
		c.err = err
	}
}

// DTMFInRange reports whether digits is within the documented 0 to 20.
func DTMFInRange(digits int) bool {
	return digits >= 0 && digits <= MaxDTMF
}

// orDefault maps 0 to def and any negative value to 0.
func orDefault(v, def int) int {
	switch {
	case v == 0:
		return def
	case v < 0:
		return 0
	}
	return v
}
