package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"callhandle-api/callhandle"
)

const ivrYAML = `
name: ivr
description: sales and support menu
rules:
  - name: sales
    match:
      call_status: DTMF
      dtmf: "1"
    steps:
      - function: PlayTTS
        message: "Connecting ${calling_party} to sales"
      - function: MakeCall
        called_party: "60123456789"
        record_call: true
        ringtone: UK
  - name: hangup
    match:
      call_status: DISCONNECT
    steps:
      - function: Hangup
  - name: menu
    steps:
      - function: PlayTTS
        message: Press 1 for sales
        dtmf: 1
        handle_interrupt: true
        replay: 2
      - function: PlaySystem
        value: beep
      - function: Transfer
        target: "sip:${voip_login}@example.com"
        priority: 3
`

func intp(v int) *int { return &v }

func parseFlow(t *testing.T, src string) *Flow {
	t.Helper()
	var f Flow
	require.NoError(t, yaml.Unmarshal([]byte(src), &f))
	require.NoError(t, f.Validate())
	return &f
}

func TestMatchFirstRuleWins(t *testing.T) {
	f := parseFlow(t, ivrYAML)

	tests := []struct {
		name   string
		params map[string]string
		want   string
	}{
		{"digit one", map[string]string{"call_status": "DTMF", "dtmf": "1"}, "sales"},
		{"other digit", map[string]string{"call_status": "DTMF", "dtmf": "2"}, "menu"},
		{"disconnect", map[string]string{"call_status": "DISCONNECT"}, "hangup"},
		{"setup", map[string]string{"call_status": "SETUP"}, "menu"},
		{"no params", nil, "menu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := f.Match(callhandle.NewEventParams(tt.params))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rule.Name)
		})
	}
}

func TestMatchNoRule(t *testing.T) {
	f := &Flow{Name: "strict", Rules: []Rule{{
		Match: map[string]string{"call_status": "SETUP"},
		Steps: []Step{{Function: "Hangup"}},
	}}}

	_, err := f.Match(callhandle.NewEventParams(nil))
	assert.ErrorIs(t, err, ErrNoRule)
}

func TestMatchUsesAccessorDefaults(t *testing.T) {
	rule := Rule{Match: map[string]string{"call_type": "PSTN", "call_connected": "false"}}
	assert.True(t, rule.Matches(callhandle.NewEventParams(nil)))
	assert.False(t, rule.Matches(callhandle.NewEventParams(map[string]string{"call_connected": "1"})))

	anyDigit := Rule{Match: map[string]string{"dtmf": MatchAny}}
	assert.True(t, anyDigit.Matches(callhandle.NewEventParams(map[string]string{"dtmf": "9"})))
	assert.False(t, anyDigit.Matches(callhandle.NewEventParams(map[string]string{"dtmf": ""})))
	assert.False(t, anyDigit.Matches(callhandle.NewEventParams(nil)))
}

func TestApplySalesRule(t *testing.T) {
	f := parseFlow(t, ivrYAML)
	c := callhandle.NewController(callhandle.NewEventParams(map[string]string{
		"call_status":   "DTMF",
		"dtmf":          "1",
		"number":        "60111111111",
		"calling_party": "60199999999",
	}))

	rule, err := f.Apply(c)
	require.NoError(t, err)
	assert.Equal(t, "sales", rule.Name)

	cmds := c.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "Connecting 60199999999 to sales", cmds[0].(callhandle.SpeechCommand).Message)

	call := cmds[1].(callhandle.MakeCallCommand)
	assert.Equal(t, "60123456789", call.CalledParty)
	assert.Equal(t, "60111111111", call.CallingParty)
	assert.True(t, call.RecordCall)
	assert.Equal(t, callhandle.RingtoneUK, call.Ringtone)
	assert.Equal(t, "GET", call.RecordCallbackMethod)
}

func TestApplyMenuRule(t *testing.T) {
	f := parseFlow(t, ivrYAML)
	c := callhandle.NewController(callhandle.NewEventParams(map[string]string{"voip_login": "desk"}))

	_, err := f.Apply(c)
	require.NoError(t, err)

	cmds := c.Commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, callhandle.SpeechCommand{
		Function:        "PlayTTS",
		Message:         "Press 1 for sales",
		Voice:           "f",
		Language:        "en",
		DTMF:            1,
		HandleInterrupt: true,
		Replay:          2,
		NoDTMFMessage:   "Press 1 for sales",
	}, cmds[0])
	assert.Equal(t, callhandle.PlayTypeSystem, cmds[1].(callhandle.PlayCommand).Type)

	custom := cmds[2].(callhandle.CustomCommand)
	assert.Equal(t, "Transfer", custom.FunctionName())
	assert.Equal(t, "sip:desk@example.com", custom["target"])
	assert.Equal(t, 3, custom["priority"])
}

func TestApplyMissingCallingParty(t *testing.T) {
	f := parseFlow(t, ivrYAML)
	c := callhandle.NewController(callhandle.NewEventParams(map[string]string{
		"call_type":   "P2I",
		"call_status": "DTMF",
		"dtmf":        "1",
	}))

	rule, err := f.Apply(c)
	assert.ErrorIs(t, err, callhandle.ErrMissingField)
	require.NotNil(t, rule)
	assert.Equal(t, "sales", rule.Name)
}

func TestApplyTemplateMissingParty(t *testing.T) {
	tests := []struct {
		name     string
		template string
		field    string
	}{
		{"number", "Hello ${number}", "number"},
		{"calling party", "From ${calling_party}", "calling_party"},
		{"called party", "To ${called_party}", "called_party"},
		{"default calling party", "As ${default_calling_party}", "number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Flow{Name: "greet", Rules: []Rule{{Steps: []Step{
				{Function: "Hangup"},
				{Function: "PlayTTS", Message: tt.template},
			}}}}
			c := callhandle.NewController(callhandle.NewEventParams(map[string]string{"call_status": "SETUP"}))

			_, err := f.Apply(c)
			require.ErrorIs(t, err, callhandle.ErrMissingField)
			var missing *callhandle.MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.field, missing.Field)
			assert.Equal(t, 1, c.Len())
		})
	}
}

func TestApplyTemplateOptionalParams(t *testing.T) {
	f := &Flow{Name: "greet", Rules: []Rule{{Steps: []Step{
		{Function: "PlayTTS", Message: "[${dtmf}][${voip_login}][${sip_login}]"},
	}}}}
	c := callhandle.NewController(callhandle.NewEventParams(nil))

	_, err := f.Apply(c)
	require.NoError(t, err)
	assert.Equal(t, "[][][]", c.Commands()[0].(callhandle.SpeechCommand).Message)
}

func TestCustomStepKeepsAllKeys(t *testing.T) {
	f := parseFlow(t, `
name: custom
rules:
  - steps:
      - function: Record
        duration: 15
        message: hello ${number}
        target: sip:a
        options:
          beep: true
          tags: ["${dtmf}", x]
`)
	c := callhandle.NewController(callhandle.NewEventParams(map[string]string{"number": "601", "dtmf": "5"}))

	_, err := f.Apply(c)
	require.NoError(t, err)

	body, err := c.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"commands":[{
		"function": "Record",
		"duration": 15,
		"message": "hello 601",
		"target": "sip:a",
		"options": {"beep": true, "tags": ["5", "x"]}
	}]}`, string(body))

	step := f.Rules[0].Steps[0]
	assert.Nil(t, step.Duration)
	assert.Empty(t, step.Message)
}

func TestExplicitZeroDuration(t *testing.T) {
	f := parseFlow(t, `
name: waits
rules:
  - steps:
      - function: Sleep
        duration: 0
      - function: Sleep
      - function: DropSession
        duration: 0
      - function: DropSession
        duration: 12
`)
	c := callhandle.NewController(nil)

	_, err := f.Apply(c)
	require.NoError(t, err)

	cmds := c.Commands()
	require.Len(t, cmds, 4)
	assert.Equal(t, 0, cmds[0].(callhandle.DurationCommand).Duration)
	assert.Equal(t, 1, cmds[1].(callhandle.DurationCommand).Duration)
	assert.Equal(t, 0, cmds[2].(callhandle.DurationCommand).Duration)
	assert.Equal(t, 12, cmds[3].(callhandle.DurationCommand).Duration)
}

func TestApplyPlayVariants(t *testing.T) {
	noDTMF := "fallback.wav"
	f := &Flow{Name: "media", Rules: []Rule{{Steps: []Step{
		{Function: "PlayFile", Value: "a.wav", NoDTMF: &noDTMF},
		{Function: "PlayFile", Type: "url", Value: "https://example.com/a.mp3"},
		{Function: "PlayURL", URL: "https://example.com/b.mp3"},
		{Function: "PlayTranslate", Message: "hello", Language: "ms", Voice: "M"},
		{Function: "SpeechToText", Language: "en-US", Duration: intp(10)},
		{Function: "StartRecording", RecordCallbackURL: "https://example.com/rec?n=${number}", RecordCallbackMethod: "POST"},
		{Function: "Sleep"},
		{Function: "DropSession"},
	}}}}
	require.NoError(t, f.Validate())

	c := callhandle.NewController(callhandle.NewEventParams(map[string]string{"number": "601"}))
	_, err := f.Apply(c)
	require.NoError(t, err)

	cmds := c.Commands()
	require.Len(t, cmds, 8)
	assert.Equal(t, "fallback.wav", cmds[0].(callhandle.PlayCommand).NoDTMFValue)
	assert.Equal(t, callhandle.PlayTypeURL, cmds[1].(callhandle.PlayCommand).Type)
	assert.Equal(t, "https://example.com/b.mp3", cmds[2].(callhandle.PlayCommand).Value)

	translate := cmds[3].(callhandle.SpeechCommand)
	assert.Equal(t, "PlayTranslate", translate.Function)
	assert.Equal(t, callhandle.VoiceMale, translate.Voice)
	assert.Equal(t, "ms", translate.Language)

	assert.Equal(t, 10, cmds[4].(callhandle.SpeechToTextCommand).Duration)
	rec := cmds[5].(callhandle.StartRecordingCommand)
	assert.Equal(t, "https://example.com/rec?n=601", rec.RecordCallbackURL)
	assert.Equal(t, "POST", rec.RecordCallbackMethod)
	assert.Equal(t, 1, cmds[6].(callhandle.DurationCommand).Duration)
	assert.Equal(t, 30, cmds[7].(callhandle.DurationCommand).Duration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		flow Flow
	}{
		{"no name", Flow{Rules: []Rule{{Steps: []Step{{Function: "Hangup"}}}}}},
		{"no rules", Flow{Name: "x"}},
		{"no steps", Flow{Name: "x", Rules: []Rule{{Name: "r"}}}},
		{"no function", Flow{Name: "x", Rules: []Rule{{Steps: []Step{{}}}}}},
		{"make call without called party", Flow{Name: "x", Rules: []Rule{{Steps: []Step{{Function: "MakeCall"}}}}}},
		{"tts without message", Flow{Name: "x", Rules: []Rule{{Steps: []Step{{Function: "PlayTTS"}}}}}},
		{"speech without language", Flow{Name: "x", Rules: []Rule{{Steps: []Step{{Function: "SpeechToText"}}}}}},
		{"play url without url", Flow{Name: "x", Rules: []Rule{{Steps: []Step{{Function: "PlayURL"}}}}}},
		{"play file bad type", Flow{Name: "x", Rules: []Rule{{Steps: []Step{{Function: "PlayFile", Type: "tape", Value: "a"}}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.flow.Validate(), ErrInvalidFlow)
		})
	}
}
