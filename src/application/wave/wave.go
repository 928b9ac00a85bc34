package wave

import (
	"time"

	"staytuned/src/lib/cerr"
)

const (
	// StandardSampleRate is the rate every waveform is normalized to
	// before inference.
	StandardSampleRate = 44100

	// StandardChannels is the channel layout the model expects.
	StandardChannels = 2
)

// Waveform holds deinterleaved float samples, one slice per channel.
// Samples are never clipped or normalized, so values outside [-1, 1]
// are preserved as-is.
type Waveform struct {
	SampleRate int
	Channels   [][]float32
}

func (w Waveform) Frames() int {
	if len(w.Channels) == 0 {
		return 0
	}

	return len(w.Channels[0])
}

func (w Waveform) Duration() time.Duration {
	if w.SampleRate == 0 {
		return 0
	}

	return time.Duration(float64(w.Frames()) / float64(w.SampleRate) * float64(time.Second))
}

// EnsureStereo duplicates a mono channel into two. Waveforms that already
// have two or more channels are returned unchanged.
func (w Waveform) EnsureStereo() Waveform {
	if len(w.Channels) != 1 {
		return w
	}

	duplicate := append([]float32{}, w.Channels[0]...)

	return Waveform{
		SampleRate: w.SampleRate,
		Channels:   [][]float32{w.Channels[0], duplicate},
	}
}

// Truncate caps the waveform at the given duration. Shorter waveforms are
// returned unchanged.
func (w Waveform) Truncate(max time.Duration) Waveform {
	maxFrames := w.framesFor(max)
	if w.Frames() <= maxFrames {
		return w
	}

	channels := make([][]float32, len(w.Channels))
	for i, channel := range w.Channels {
		channels[i] = channel[:maxFrames]
	}

	return Waveform{SampleRate: w.SampleRate, Channels: channels}
}

// Window slices out [start, start+duration). A zero or negative start
// begins at the front, a zero or negative duration extends to the end.
// Bounds are clamped to the available frames.
func (w Waveform) Window(start time.Duration, duration time.Duration) Waveform {
	startFrame := 0
	if start > 0 {
		startFrame = w.framesFor(start)
	}
	if startFrame > w.Frames() {
		startFrame = w.Frames()
	}

	endFrame := w.Frames()
	if duration > 0 {
		endFrame = startFrame + w.framesFor(duration)
		if endFrame > w.Frames() {
			endFrame = w.Frames()
		}
	}

	channels := make([][]float32, len(w.Channels))
	for i, channel := range w.Channels {
		channels[i] = channel[startFrame:endFrame]
	}

	return Waveform{SampleRate: w.SampleRate, Channels: channels}
}

func (w Waveform) framesFor(d time.Duration) int {
	return int(d.Seconds() * float64(w.SampleRate))
}

// Sum adds waveforms element-wise. All inputs must share the same sample
// rate and shape. No clipping is applied to the result.
func Sum(waveforms ...Waveform) (Waveform, error) {
	if len(waveforms) == 0 {
		return Waveform{}, cerr.Error("No waveforms provided to sum")
	}

	first := waveforms[0]
	for _, waveform := range waveforms[1:] {
		if waveform.SampleRate != first.SampleRate {
			return Waveform{}, cerr.Fields(cerr.F{
				"expected_sample_rate": first.SampleRate,
				"actual_sample_rate":   waveform.SampleRate,
			}).Error("Waveform sample rates don't match")
		}

		if len(waveform.Channels) != len(first.Channels) || waveform.Frames() != first.Frames() {
			return Waveform{}, cerr.Error("Waveform shapes don't match")
		}
	}

	channels := make([][]float32, len(first.Channels))
	for i := range channels {
		summed := make([]float32, first.Frames())
		for _, waveform := range waveforms {
			for j, sample := range waveform.Channels[i] {
				summed[j] += sample
			}
		}
		channels[i] = summed
	}

	return Waveform{SampleRate: first.SampleRate, Channels: channels}, nil
}
