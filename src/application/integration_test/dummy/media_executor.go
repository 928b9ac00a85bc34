package dummy

import (
	"os"
	"path/filepath"
	"strings"

	"staytuned/src/application/executor"
	"staytuned/src/application/separation"
	"staytuned/src/application/wave"
)

var _ executor.Executor = MediaExecutor{}

// StemScales are the per-stem gains the fake model applies to the input.
// Tests can use them to predict exact stem contents.
var StemScales = map[separation.Stem]float32{
	separation.StemDrums:  0.1,
	separation.StemBass:   0.2,
	separation.StemOther:  0.3,
	separation.StemVocals: 0.4,
}

func NewDummyMediaExecutor() *MediaExecutor {
	return &MediaExecutor{
		Unavailable:       false,
		DemucsUnavailable: false,
	}
}

// MediaExecutor emulates both ffmpeg and demucs, dispatching on the
// binary name. DemucsUnavailable fails only the demucs commands.
type MediaExecutor struct {
	Unavailable       bool
	DemucsUnavailable bool
}

func (m MediaExecutor) Command(name string, arg ...string) executor.Command {
	return MediaCommand{
		Unavailable:       m.Unavailable,
		DemucsUnavailable: m.DemucsUnavailable,
		Name:              name,
		Args:              arg,
	}
}

type MediaCommand struct {
	Unavailable       bool
	DemucsUnavailable bool
	Name              string
	Args              []string
}

func (m MediaCommand) SetDir(_ string) {}

func (m MediaCommand) CombinedOutput() ([]byte, error) {
	if m.Unavailable {
		return nil, NetworkFailure
	}

	switch {
	case strings.Contains(m.Name, "ffmpeg"):
		return m.runFFMPEG()
	case strings.Contains(m.Name, "demucs"):
		if m.DemucsUnavailable {
			return nil, NetworkFailure
		}
		return m.runDemucs()
	default:
		return nil, UnexpectedInput
	}
}

func (m MediaCommand) runFFMPEG() ([]byte, error) {
	inputPath, err := getOptionValue(m.Args, "-i")
	if err != nil {
		return nil, err
	}

	if err := expectOptionValue(m.Args, "-ac", "2"); err != nil {
		return nil, err
	}

	if err := expectOptionValue(m.Args, "-ar", "44100"); err != nil {
		return nil, err
	}

	if err := expectOptionValue(m.Args, "-c:a", "pcm_f32le"); err != nil {
		return nil, err
	}

	outputPath := m.Args[len(m.Args)-1]

	contents, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, NotFound
	}

	if err := os.WriteFile(outputPath, contents, os.ModePerm); err != nil {
		return nil, err
	}

	return []byte("Success"), nil
}

func (m MediaCommand) runDemucs() ([]byte, error) {
	model, err := getOptionValue(m.Args, "-n")
	if err != nil {
		return nil, err
	}

	stemsDir, err := getOptionValue(m.Args, "-o")
	if err != nil {
		return nil, err
	}

	inputPath := m.Args[len(m.Args)-1]

	waveform, err := wave.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}

	trackName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	trackDir := filepath.Join(stemsDir, model, trackName)
	if err := os.MkdirAll(trackDir, os.ModePerm); err != nil {
		return nil, err
	}

	for _, stem := range separation.ModelStems {
		stemPath := filepath.Join(trackDir, string(stem)+".wav")
		if err := wave.WriteFile(stemPath, scaleWaveform(waveform, StemScales[stem])); err != nil {
			return nil, err
		}
	}

	return []byte("Success"), nil
}

func scaleWaveform(waveform wave.Waveform, scale float32) wave.Waveform {
	channels := make([][]float32, len(waveform.Channels))
	for i, channel := range waveform.Channels {
		scaled := make([]float32, len(channel))
		for j, sample := range channel {
			scaled[j] = sample * scale
		}
		channels[i] = scaled
	}

	return wave.Waveform{SampleRate: waveform.SampleRate, Channels: channels}
}

func getOptionValue(args []string, key string) (string, error) {
	for i, arg := range args {
		if arg == key && i+1 < len(args) {
			return args[i+1], nil
		}
	}

	return "", UnexpectedInput
}

func expectOptionValue(args []string, key string, want string) error {
	val, err := getOptionValue(args, key)
	if err != nil {
		return err
	}

	if val != want {
		return UnexpectedInput
	}

	return nil
}
