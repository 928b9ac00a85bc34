package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"

	"staytuned/src/application/batch"
	"staytuned/src/application/device"
	"staytuned/src/application/executor"
	"staytuned/src/application/fetch"
	"staytuned/src/application/separation"
	"staytuned/src/lib/cerr"
)

var batchExts = []string{"*.wav", "*.mp3", "*.flac", "*.m4a"}

type cliConfig struct {
	input     string
	output    string
	batchDir  string
	url       string
	withVideo bool
	startTime float64
	duration  float64
	model     string
}

func parseFlags() cliConfig {
	c := cliConfig{}
	flag.StringVar(&c.input, "input", "", "input audio file")
	flag.StringVar(&c.output, "output", "./output", "output directory")
	flag.StringVar(&c.batchDir, "batch", "", "process multiple files from directory")
	flag.StringVar(&c.url, "url", "", "download and process from URL")
	flag.BoolVar(&c.withVideo, "with-video", false, "also download best available video when fetching from URL")
	flag.Float64Var(&c.startTime, "start-time", 0, "start time in seconds")
	flag.Float64Var(&c.duration, "duration", 0, "duration in seconds")
	flag.StringVar(&c.model, "model", string(separation.HTDemucs), "separation model: htdemucs|htdemucs_ft|mdx_extra")
	flag.Parse()
	return c
}

func main() {
	log.SetHandler(text.New(os.Stderr))

	c := parseFlags()

	model, err := separation.ConvertToModel(c.model)
	if err != nil {
		fail(cerr.Field("model", c.model).Wrap(err).Error("Unrecognized separation model"))
	}

	binaryExecutor := executor.BinaryFileExecutor{}
	dev := device.DefaultSelector(binaryExecutor).Select()

	engine, err := separation.NewEngine(
		getEnvOrDefault("SEPARATION_WORKING_DIR_PATH", "./temp_audio"),
		getEnvOrDefault("FFMPEG_BIN_PATH", "ffmpeg"),
		getEnvOrDefault("DEMUCS_BIN_PATH", "demucs"),
		model,
		dev,
		binaryExecutor,
	)
	if err != nil {
		fail(cerr.Wrap(err).Error("Failed to create separation engine"))
	}

	ctx := context.Background()

	input := c.input
	if c.url != "" {
		input = fetchInput(ctx, c, binaryExecutor)
	}

	switch {
	case c.batchDir != "":
		runBatch(ctx, c, engine)
	case input != "":
		runSingle(ctx, c, engine, input)
	default:
		fail(cerr.Error("Please provide an input file, batch directory, or URL"))
	}
}

func fetchInput(ctx context.Context, c cliConfig, binaryExecutor executor.BinaryFileExecutor) string {
	log.WithField("url", c.url).Info("Downloading from URL")

	fetcher := fetch.NewYTDLPFetcher(getEnvOrDefault("YTDLP_BIN_PATH", "yt-dlp"), binaryExecutor)
	result, err := fetcher.Fetch(ctx, c.url, c.output, c.withVideo, true)
	if err != nil {
		fail(cerr.Field("url", c.url).Wrap(err).Error("Failed to download from URL"))
	}

	if result.HasVideo() {
		log.WithField("video_path", result.VideoPath).Info("Downloaded video")
	}

	return result.AudioPath
}

func runSingle(ctx context.Context, c cliConfig, engine separation.Engine, input string) {
	if _, err := os.Stat(input); err != nil {
		fail(cerr.Field("input", input).Wrap(err).Error("Input file not found"))
	}

	window := separation.Window{
		Start:    secondsToDuration(c.startTime),
		Duration: secondsToDuration(c.duration),
	}

	stems, err := engine.Separate(ctx, input, c.output, window)
	if err != nil {
		fail(cerr.Field("input", input).Wrap(err).Error("Separation failed"))
	}

	log.Info("Separation complete")
	for stem, stemPath := range stems {
		log.WithFields(log.Fields{
			"stem": string(stem),
			"path": stemPath,
		}).Info("Wrote stem")
	}
}

func runBatch(ctx context.Context, c cliConfig, engine separation.Engine) {
	audioFiles := []string{}
	for _, pattern := range batchExts {
		matches, err := filepath.Glob(filepath.Join(c.batchDir, pattern))
		if err != nil {
			fail(cerr.Field("pattern", pattern).Wrap(err).Error("Failed to scan batch directory"))
		}
		audioFiles = append(audioFiles, matches...)
	}

	if len(audioFiles) == 0 {
		fail(cerr.Field("batch_dir", c.batchDir).Error("No audio files found in batch directory"))
	}

	runner := batch.NewRunner(engine, c.output)
	results := runner.Run(ctx, audioFiles)

	failures := 0
	for _, entry := range results {
		if entry.Failed() {
			failures++
		}
	}

	log.WithFields(log.Fields{
		"processed": len(results),
		"failures":  failures,
	}).Info("Batch complete")
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func getEnvOrDefault(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	return val
}

func fail(err error) {
	cerr.Log(err)
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
