package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"callhandle-api/callhandle"
)

// Webhook result labels.
const (
	resultRendered    = "rendered"
	resultUnknownFlow = "unknown_flow"
	resultForbidden   = "forbidden"
	resultBadRequest  = "bad_request"
	resultNoRule      = "no_rule"
	resultFailed      = "failed"
)

// unknownFlowLabel stands in for flow names that are not loaded.
const unknownFlowLabel = "unknown"

var (
	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callhandle_webhooks_total",
			Help: "Webhook requests by flow, call status and result.",
		},
		[]string{"flow", "call_status", "result"},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callhandle_commands_total",
			Help: "Call handle commands rendered, by function.",
		},
		[]string{"function"},
	)

	webhookDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callhandle_webhook_duration_seconds",
			Help:    "Time to build and render a webhook response.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"flow"},
	)

	flowsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "callhandle_flows_loaded",
			Help: "Number of call flows currently loaded.",
		},
	)

	dtmfOutOfRangeTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "callhandle_dtmf_out_of_range_total",
			Help: "Play commands built with a DTMF digit count outside 0-20.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		webhooksTotal,
		commandsTotal,
		webhookDurationSeconds,
		flowsLoaded,
		dtmfOutOfRangeTotal,
	)
}

func recordWebhook(flow, callStatus, result string, duration time.Duration) {
	webhooksTotal.WithLabelValues(flow, callStatus, result).Inc()
	webhookDurationSeconds.WithLabelValues(flow).Observe(duration.Seconds())
}

func recordRendered(cmds []callhandle.Command) {
	for _, cmd := range cmds {
		commandsTotal.WithLabelValues(cmd.FunctionName()).Inc()
	}
}

// observeCommand is installed as a controller hook.
func observeCommand(cmd callhandle.Command) {
	var dtmf int
	switch c := cmd.(type) {
	case callhandle.PlayCommand:
		dtmf = c.DTMF
	case callhandle.SpeechCommand:
		dtmf = c.DTMF
	default:
		return
	}
	if !callhandle.DTMFInRange(dtmf) {
		dtmfOutOfRangeTotal.Inc()
	}
}

func setFlowsLoaded(count int) {
	flowsLoaded.Set(float64(count))
}
