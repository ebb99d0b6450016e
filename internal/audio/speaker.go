// Package audio plays keystroke feedback clicks on the default output device.
package audio

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
)

// DefaultSampleRate is used when no sample rate is configured.
const DefaultSampleRate = 44100

// Tone is a triangle wave whose pitch and gain both ramp exponentially from
// their start to their end value over Duration.
type Tone struct {
	StartHz   float64
	EndHz     float64
	StartGain float64
	EndGain   float64
	Duration  time.Duration
}

// Click is the feedback sound: 800Hz falling to 400Hz, fading from 0.3 to
// 0.01 over 100ms.
var Click = Tone{
	StartHz:   800,
	EndHz:     400,
	StartGain: 0.3,
	EndGain:   0.01,
	Duration:  100 * time.Millisecond,
}

// Samples returns the number of frames the tone spans at sr.
func (t Tone) Samples(sr beep.SampleRate) int {
	return sr.N(t.Duration)
}

// Streamer renders the tone at sr. Left and right channels are identical.
func (t Tone) Streamer(sr beep.SampleRate) beep.Streamer {
	total := t.Samples(sr)
	pos := 0
	phase := 0.0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= total {
			return 0, false
		}
		n := 0
		for n < len(samples) && pos < total {
			progress := float64(pos) / float64(total)
			freq := ramp(t.StartHz, t.EndHz, progress)
			v := triangle(phase) * ramp(t.StartGain, t.EndGain, progress)
			samples[n][0] = v
			samples[n][1] = v
			phase += freq / float64(sr)
			pos++
			n++
		}
		return n, true
	})
}

func ramp(from, to, progress float64) float64 {
	if from <= 0 || to <= 0 {
		return from + (to-from)*progress
	}
	return from * math.Pow(to/from, progress)
}

// triangle maps a phase in cycles to [-1,1], starting at zero.
func triangle(phase float64) float64 {
	_, frac := math.Modf(phase + 0.25)
	return 2*math.Abs(2*frac-1) - 1
}

// Speaker is a feedback sink backed by the system speaker. The device is
// opened by Prepare; until then playback is silently skipped.
type Speaker struct {
	sampleRate beep.SampleRate
	volumeDB   float64
	tone       Tone

	once  sync.Once
	err   error
	ready atomic.Bool
	click *beep.Buffer
}

// NewSpeaker returns a speaker sink. volumeDB is applied on a base-2 scale;
// negative values are quieter.
func NewSpeaker(sampleRate int, volumeDB float64) *Speaker {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Speaker{
		sampleRate: beep.SampleRate(sampleRate),
		volumeDB:   volumeDB,
		tone:       Click,
	}
}

// Prepare renders the click and opens the output device. Only the first call
// does any work; later calls return its error.
func (s *Speaker) Prepare() error {
	s.once.Do(func() {
		format := beep.Format{SampleRate: s.sampleRate, NumChannels: 2, Precision: 2}
		buf := beep.NewBuffer(format)
		buf.Append(s.tone.Streamer(s.sampleRate))
		s.click = buf
		if err := speaker.Init(s.sampleRate, s.sampleRate.N(time.Second/20)); err != nil {
			s.err = fmt.Errorf("failed to open speaker: %w", err)
			return
		}
		s.ready.Store(true)
	})
	return s.err
}

// PlayImmediate implements sound.Sink.
func (s *Speaker) PlayImmediate() { s.play() }

// PlayDelayed implements sound.Sink. The delay itself is applied by the caller.
func (s *Speaker) PlayDelayed() { s.play() }

// Close stops any click still playing.
func (s *Speaker) Close() {
	if s.ready.Load() {
		speaker.Clear()
	}
}

func (s *Speaker) play() {
	if !s.ready.Load() {
		return
	}
	speaker.Play(&effects.Volume{
		Streamer: s.click.Streamer(0, s.click.Len()),
		Base:     2,
		Volume:   s.volumeDB,
		Silent:   false,
	})
}
