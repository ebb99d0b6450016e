package audio

import (
	"math"
	"testing"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s beep.Streamer) [][2]float64 {
	t.Helper()
	var out [][2]float64
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		out = append(out, buf[:n]...)
		if !ok {
			return out
		}
	}
}

func TestClickLengthAndEnvelope(t *testing.T) {
	sr := beep.SampleRate(8000)
	samples := drain(t, Click.Streamer(sr))
	require.Len(t, samples, Click.Samples(sr))
	require.Equal(t, 800, len(samples))

	assert.Equal(t, 0.0, samples[0][0])
	peakHead, peakTail := 0.0, 0.0
	for i, s := range samples {
		assert.Equal(t, s[0], s[1], "channels differ at %d", i)
		assert.LessOrEqual(t, math.Abs(s[0]), Click.StartGain+1e-9)
		if i < 80 {
			peakHead = math.Max(peakHead, math.Abs(s[0]))
		}
		if i >= len(samples)-80 {
			peakTail = math.Max(peakTail, math.Abs(s[0]))
		}
	}
	assert.Greater(t, peakHead, 0.2)
	assert.Less(t, peakTail, 0.02)
}

func TestRampEndpoints(t *testing.T) {
	assert.InDelta(t, 800, ramp(800, 400, 0), 1e-9)
	assert.InDelta(t, 400, ramp(800, 400, 1), 1e-9)
	assert.InDelta(t, math.Sqrt(800*400), ramp(800, 400, 0.5), 1e-9)
	assert.InDelta(t, 0.5, ramp(0, 1, 0.5), 1e-9)
}

func TestSpeakerSkipsPlaybackBeforePrepare(t *testing.T) {
	s := NewSpeaker(0, -1)
	assert.Equal(t, beep.SampleRate(DefaultSampleRate), s.sampleRate)
	s.PlayImmediate()
	s.PlayDelayed()
	s.Close()
}
