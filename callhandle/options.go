package callhandle

import "go.uber.org/zap"

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for non-fatal diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// OnCommand registers a hook called for every command appended.
func OnCommand(fn func(Command)) Option {
	return func(c *Controller) {
		c.hooks = append(c.hooks, fn)
	}
}

type playSettings struct {
	dtmf            int
	handleInterrupt bool
	replay          int
	noDTMF          *string
	language        string
	voice           Voice
}

// PlayOption configures PlayFile, PlaySystem, PlayURL, PlayTTS and
// PlayTranslate. Language and voice only apply to PlayTTS and PlayTranslate.
type PlayOption func(*playSettings)

// WithDTMF sets how many digits to capture while playing. The documented
// range is 0 to 20.
func WithDTMF(digits int) PlayOption {
	return func(s *playSettings) { s.dtmf = digits }
}

// WithHandleInterrupt asks the platform to call back with captured digits.
func WithHandleInterrupt(on bool) PlayOption {
	return func(s *playSettings) { s.handleInterrupt = on }
}

// WithReplay sets how many times to replay when no digits are captured.
func WithReplay(times int) PlayOption {
	return func(s *playSettings) { s.replay = times }
}

// WithNoDTMF sets the alternate media (file name, URL or message) played
// when no digits are captured.
func WithNoDTMF(alt string) PlayOption {
	return func(s *playSettings) { s.noDTMF = &alt }
}

// WithLanguage sets the speech language.
func WithLanguage(lang string) PlayOption {
	return func(s *playSettings) { s.language = lang }
}

// WithVoice sets the speech voice.
func WithVoice(v Voice) PlayOption {
	return func(s *playSettings) { s.voice = v }
}

func newPlaySettings(opts []PlayOption) playSettings {
	s := playSettings{
		language: DefaultLanguage,
		voice:    DefaultVoice,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

type callSettings struct {
	callingParty *string
	cmd          MakeCallCommand
}

// CallOption configures MakeCall.
type CallOption func(*callSettings)

// WithCallingParty sets the caller ID presented to the called party. Without
// it the caller ID is resolved from the event parameters.
func WithCallingParty(number string) CallOption {
	return func(s *callSettings) { s.callingParty = &number }
}

// WithInterrupt asks the platform to call back when the B party disconnects.
func WithInterrupt(on bool) CallOption {
	return func(s *callSettings) { s.cmd.HandleInterrupt = on }
}

// WithRecording records the bridged conversation.
func WithRecording(on bool) CallOption {
	return func(s *callSettings) { s.cmd.RecordCall = on }
}

// WithRecordCallback sets where the recording callback is delivered. An
// empty method keeps GET.
func WithRecordCallback(url, method string) CallOption {
	return func(s *callSettings) {
		s.cmd.RecordCallbackURL = url
		if method != "" {
			s.cmd.RecordCallbackMethod = method
		}
	}
}

// WithRecordWaitSync delays the recording callback until the media file is
// ready to download.
func WithRecordWaitSync(on bool) CallOption {
	return func(s *callSettings) { s.cmd.RecordWaitSync = on }
}

// WithRingtone sets the ringback tone.
func WithRingtone(r Ringtone) CallOption {
	return func(s *callSettings) { s.cmd.Ringtone = r }
}

// WithRecordSplit records each party into a separate file.
func WithRecordSplit(on bool) CallOption {
	return func(s *callSettings) { s.cmd.RecordSplit = on }
}
