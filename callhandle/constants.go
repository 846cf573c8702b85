package callhandle

// Event parameter names sent by the platform.
const (
	ParamCallType         = "call_type"
	ParamCallStatus       = "call_status"
	ParamCallCause        = "call_cause"
	ParamCallConnected    = "call_connected"
	ParamNumber           = "number"
	ParamDTMF             = "dtmf"
	ParamCallingParty     = "calling_party"
	ParamCalledParty      = "called_party"
	ParamVOIPCallerNumber = "voip_caller_number"
	ParamVOIPLogin        = "voip_login"
)

// Call types (call_type).
const (
	CallTypePSTN      = "PSTN"
	CallTypeP2I       = "P2I"        // phone to VOIP
	CallTypeI2P       = "I2P"        // VOIP to phone
	CallTypeIPForward = "IP_FORWARD" // VOIP call forward
	CallTypeWSForward = "WS_FORWARD" // websocket/WebRTC call forward
)

// Call status events (call_status).
const (
	CallStatusSetup        = "SETUP"
	CallStatusAlert        = "ALERT"
	CallStatusDisconnect   = "DISCONNECT"
	CallStatusDTMF         = "DTMF"
	CallStatusSpeechToText = "SPEECH_TO_TEXT"
	CallStatusRecord       = "RECORD"
	CallStatusRecordStart  = "START_RECORD"
	CallStatusRecordEnd    = "END_RECORD"
)

// Command function names.
const (
	FunctionSleep          = "Sleep"
	FunctionDropSession    = "DropSession"
	FunctionSpeechToText   = "SpeechToText"
	FunctionStartRecording = "StartRecording"
	FunctionMakeCall       = "MakeCall"
	FunctionPlayFile       = "PlayFile"
	FunctionPlayTTS        = "PlayTTS"
	FunctionPlayTranslate  = "PlayTranslate"
	FunctionHangup         = "Hangup"
)

// PlayFile media types. PlaySystem and PlayURL share the PlayFile function.
const (
	PlayTypeFile   = "file"
	PlayTypeSystem = "system"
	PlayTypeURL    = "url"
)

// Voice selects the text-to-speech voice.
type Voice string

const (
	VoiceFemale Voice = "F"
	VoiceMale   Voice = "M"

	// DefaultVoice is the literal the platform has always received when no
	// voice is given. It is lowercase, unlike VoiceFemale.
	DefaultVoice Voice = "f"
)

// Ringtone selects the ringback tone played during MakeCall.
type Ringtone string

const (
	RingtoneAU Ringtone = "AU"
	RingtoneEU Ringtone = "EU"
	RingtoneJP Ringtone = "JP"
	RingtoneUK Ringtone = "UK"
	RingtoneUS Ringtone = "US"
)

// Defaults applied when a caller leaves a value unset.
const (
	DefaultSleepSeconds       = 1
	DefaultDropSessionSeconds = 30
	DefaultSpeechSeconds      = 30
	DefaultRecordSeconds      = 30
	DefaultCallbackMethod     = "GET"
	DefaultLanguage           = "en"

	// ZeroSeconds asks a duration builder for an explicit duration of 0,
	// since 0 itself selects the default.
	ZeroSeconds = -1

	// MaxDTMF is the documented upper bound of digits a play command may
	// capture. It is not enforced.
	MaxDTMF = 20
)
