package separation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"

	"staytuned/src/application/device"
	"staytuned/src/application/executor"
	"staytuned/src/application/wave"
	"staytuned/src/lib/cerr"
	"staytuned/src/lib/working_dir"
)

// MaxTrackDuration bounds memory use during inference. It takes priority
// over any requested window.
const MaxTrackDuration = 600 * time.Second

var _ Extractor = Engine{}

func NewEngine(
	workingDirStr string,
	ffmpegBinPath string,
	demucsBinPath string,
	model Model,
	dev device.Descriptor,
	commandExecutor executor.Executor,
) (Engine, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return Engine{}, cerr.Field("working_dir_str", workingDirStr).Wrap(err).Error("Failed to create working dir")
	}

	if model == InvalidModel {
		model = HTDemucs
	}

	return Engine{
		workingDir:      workingDir,
		ffmpegBinPath:   ffmpegBinPath,
		demucsBinPath:   demucsBinPath,
		model:           model,
		device:          dev,
		inferenceSlot:   make(chan struct{}, 1),
		commandExecutor: commandExecutor,
	}, nil
}

// Engine wraps one loaded pretrained model. The model instance is shared
// across calls; inferenceSlot serializes accelerator use so concurrent
// callers queue instead of contending for the device.
type Engine struct {
	workingDir      working_dir.WorkingDir
	ffmpegBinPath   string
	demucsBinPath   string
	model           Model
	device          device.Descriptor
	inferenceSlot   chan struct{}
	commandExecutor executor.Executor
}

func (e Engine) Model() Model {
	return e.model
}

// Separate runs the model against the audio file and writes four labeled
// stems plus the derived instrumental composite into outputDir. Any failure
// aborts the whole call; no partial stem set is valid.
func (e Engine) Separate(ctx context.Context, audioPath string, outputDir string, window Window) (StemPaths, error) {
	errctx := cerr.Fields(cerr.F{
		"audio_path": audioPath,
		"output_dir": outputDir,
		"model":      e.model,
	})

	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Cannot convert output dir to absolute format")
	}

	if err := os.MkdirAll(absOutputDir, os.ModePerm); err != nil {
		return nil, errctx.Wrap(err).Error("Failed to create output directory")
	}

	tempDir, removeTempDir, err := e.createTempDir()
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to create temp dir for separation")
	}
	defer removeTempDir()

	log.WithField("audio_path", audioPath).Info("Preparing waveform")
	preparedPath, err := e.prepareWaveform(audioPath, tempDir, window)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to prepare waveform")
	}

	// inference is a lengthy process, if we want to halt now is the time
	if ctx.Err() != nil {
		return nil, errctx.Wrap(ctx.Err()).Error("Context cancelled before inference could happen")
	}

	stemsDir := filepath.Join(tempDir, "stems")
	if err := e.runModel(preparedPath, stemsDir); err != nil {
		return nil, errctx.Wrap(err).Error("Failed to run separation model")
	}

	results, err := e.writeOutputs(audioPath, stemsDir, absOutputDir)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to write separated stems")
	}

	log.WithField("output_dir", absOutputDir).Info("Separation complete")
	return results, nil
}

// prepareWaveform decodes the input at 44.1kHz/2ch float32, enforces the
// hard duration cap, applies the optional window, and writes the result
// to a file the model can consume.
func (e Engine) prepareWaveform(audioPath string, tempDir string, window Window) (string, error) {
	decodedPath := filepath.Join(tempDir, "decoded.wav")

	cmd := e.commandExecutor.Command(e.ffmpegBinPath,
		"-y",
		"-i", audioPath,
		"-vn",
		"-ac", "2",
		"-ar", "44100",
		"-c:a", "pcm_f32le",
		decodedPath)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", cerr.Field("error_msg", string(output)).Wrap(err).Error("Failed to run ffmpeg")
	}

	waveform, err := wave.ReadFile(decodedPath)
	if err != nil {
		return "", cerr.Wrap(err).Error("Failed to load decoded waveform")
	}

	waveform = waveform.EnsureStereo().Truncate(MaxTrackDuration)

	if !window.IsZero() {
		waveform = waveform.Window(window.Start, window.Duration)
	}

	preparedPath := filepath.Join(tempDir, "prepared.wav")
	if err := wave.WriteFile(preparedPath, waveform); err != nil {
		return "", cerr.Wrap(err).Error("Failed to write prepared waveform")
	}

	return preparedPath, nil
}

func (e Engine) runModel(preparedPath string, stemsDir string) error {
	e.inferenceSlot <- struct{}{}
	defer func() { <-e.inferenceSlot }()

	logger := log.WithFields(log.Fields{
		"prepared_path": preparedPath,
		"stems_dir":     stemsDir,
		"model":         e.model,
		"backend":       e.device.Backend,
	})

	args := []string{"-n", string(e.model)}
	args = append(args, e.device.InferenceArgs()...)
	args = append(args, "--float32", "-o", stemsDir, preparedPath)

	logger.Info("Running demucs command")
	cmd := e.commandExecutor.Command(e.demucsBinPath, args...)
	cmd.SetDir(e.workingDir.Root())

	output, err := cmd.CombinedOutput()
	if err != nil {
		errMsg := fmt.Sprintf("Error occurred while running demucs - output: %s", string(output))
		return cerr.Wrap(err).Error(errMsg)
	}

	logger.Info("Finished demucs command")
	return nil
}

// writeOutputs renames the model's stems into outputDir and derives the
// instrumental composite. The composite is only written when every
// non-vocal stem was produced.
func (e Engine) writeOutputs(audioPath string, stemsDir string, outputDir string) (StemPaths, error) {
	trackDir, err := modelTrackDir(stemsDir)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to locate model output directory")
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))

	results := StemPaths{}
	stemWaveforms := map[Stem]wave.Waveform{}

	for _, stem := range ModelStems {
		stemPath := filepath.Join(trackDir, string(stem)+".wav")
		waveform, err := wave.ReadFile(stemPath)
		if err != nil {
			return nil, cerr.Field("stem", stem).Wrap(err).Error("Model did not produce expected stem")
		}

		outputPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.wav", base, stem))
		if err := wave.WriteFile(outputPath, waveform); err != nil {
			return nil, cerr.Field("stem", stem).Wrap(err).Error("Failed to write stem output")
		}

		stemWaveforms[stem] = waveform
		results[stem] = outputPath
	}

	parts := make([]wave.Waveform, 0, len(InstrumentalParts))
	for _, stem := range InstrumentalParts {
		waveform, ok := stemWaveforms[stem]
		if !ok {
			return results, nil
		}
		parts = append(parts, waveform)
	}

	instrumental, err := wave.Sum(parts...)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to derive instrumental composite")
	}

	instrumentalPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.wav", base, StemInstrumental))
	if err := wave.WriteFile(instrumentalPath, instrumental); err != nil {
		return nil, cerr.Wrap(err).Error("Failed to write instrumental composite")
	}

	results[StemInstrumental] = instrumentalPath
	return results, nil
}

func (e Engine) createTempDir() (string, func(), error) {
	tempDir, err := os.MkdirTemp(e.workingDir.TempDir(), "separation-*")
	if err != nil {
		return "", nil, cerr.Wrap(err).Error("Failed to create a temporary directory")
	}

	removeTempDirFn := func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.WithField("tempDir", tempDir).Error("Failed to remove temp dir")
		}
	}

	return tempDir, removeTempDirFn, nil
}

// demucs nests output as <stemsDir>/<model>/<track>/<stem>.wav
func modelTrackDir(stemsDir string) (string, error) {
	modelDir, err := singleChildDir(stemsDir)
	if err != nil {
		return "", err
	}

	trackDir, err := singleChildDir(modelDir)
	if err != nil {
		return "", err
	}

	return trackDir, nil
}

func singleChildDir(root string) (string, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return "", cerr.Field("root", root).Wrap(err).Error("Failed to read directory")
	}

	childDirs := []string{}
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			childDirs = append(childDirs, dirEntry.Name())
		}
	}

	if len(childDirs) != 1 {
		return "", cerr.Fields(cerr.F{
			"root":       root,
			"child_dirs": childDirs,
		}).Error("Expected exactly one child directory")
	}

	return filepath.Join(root, childDirs[0]), nil
}
