package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("discover", time.Second)
	r.IncBuildOutcome(BuildOutcomeSuccess)
	r.IncRequest("static", 200)

	var nilProm *PrometheusRecorder
	r = nilProm
	require.NotPanics(t, func() { r.IncStageResult("render", ResultFatal) })
}
