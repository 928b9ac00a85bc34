package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"

	"staytuned/src/application/automation"
	"staytuned/src/application/cloud_storage/entity"
	"staytuned/src/application/cloud_storage/store"
	"staytuned/src/application/device"
	"staytuned/src/application/executor"
	"staytuned/src/application/fetch"
	"staytuned/src/application/separation"
	"staytuned/src/lib/cerr"
)

func main() {
	log.SetHandler(text.New(os.Stderr))

	noAudio := flag.Bool("no-audio", false, "skip audio extraction, upload video only")
	intervalSecs := flag.Int("interval", 300, "polling interval in seconds")
	continuous := flag.Bool("monitor", false, "keep monitoring instead of processing once")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: monitor [flags] <redirect_url>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	redirectURL := flag.Arg(0)

	fileStore, bucketBaseURL := makeFileStore()

	binaryExecutor := executor.BinaryFileExecutor{}
	dev := device.DefaultSelector(binaryExecutor).Select()

	engine, err := separation.NewEngine(
		getEnvOrDefault("SEPARATION_WORKING_DIR_PATH", "./automation_temp"),
		getEnvOrDefault("FFMPEG_BIN_PATH", "ffmpeg"),
		getEnvOrDefault("DEMUCS_BIN_PATH", "demucs"),
		separation.HTDemucs,
		dev,
		binaryExecutor,
	)
	ensureOk(err)

	fetcher := fetch.NewYTDLPFetcher(getEnvOrDefault("YTDLP_BIN_PATH", "yt-dlp"), binaryExecutor)

	monitor, err := automation.NewMonitor(
		automation.NewResolver(nil),
		fetcher,
		engine,
		automation.NewUploader(fileStore, bucketBaseURL),
		getEnvOrDefault("AUTOMATION_WORKING_DIR_PATH", "./automation_temp"),
		!*noAudio,
	)
	ensureOk(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	interval := time.Duration(*intervalSecs) * time.Second

	if *continuous {
		monitor.Run(ctx, redirectURL, interval)
		return
	}

	report, err := monitor.ProcessLink(ctx, redirectURL, automation.NewProcessedSet())
	if err != nil {
		cerr.Log(err)
		os.Exit(1)
	}

	if report == nil {
		log.Info("Nothing to process")
		return
	}

	fmt.Println("Processing complete!")
	if report.VideoURL != "" {
		fmt.Printf("Video: %s\n", report.VideoURL)
	}
	for i, audioURL := range report.AudioTrackURLs {
		fmt.Printf("Audio track %d: %s\n", i+1, audioURL)
	}
}

func makeFileStore() (entity.FileStore, string) {
	switch backend := getEnvOrDefault("STORAGE_BACKEND", "s3"); backend {
	case "s3":
		accessKeyID := getEnvOrExit("AWS_ACCESS_KEY_ID")
		secretAccessKey := getEnvOrExit("AWS_SECRET_ACCESS_KEY")
		bucketName := getEnvOrExit("S3_BUCKET_NAME")
		region := getEnvOrDefault("AWS_REGION", "us-east-1")

		s3Store, err := store.NewS3FileStore(accessKeyID, secretAccessKey, region)
		ensureOk(err)

		return s3Store, s3Store.URLFor(bucketName, "")
	case "google":
		jsonKey := getEnvOrExit("GOOGLE_CLOUD_KEY")
		bucketName := getEnvOrExit("GOOGLE_CLOUD_STORAGE_BUCKET_NAME")

		googleStore, err := store.NewGoogleFileStore(jsonKey)
		ensureOk(err)

		return googleStore, googleStore.URLFor(bucketName, "")
	default:
		fmt.Fprintf(os.Stderr, "Error: unrecognized STORAGE_BACKEND %q (want s3 or google)\n", backend)
		os.Exit(1)
		return nil, ""
	}
}

func getEnvOrExit(key string) string {
	val := os.Getenv(key)
	if val == "" {
		fmt.Fprintf(os.Stderr, "Error: %s environment variable must be set\n", key)
		os.Exit(1)
	}

	return val
}

func getEnvOrDefault(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	return val
}

func ensureOk(err error) {
	if err != nil {
		panic(err)
	}
}
