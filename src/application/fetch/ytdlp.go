package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/google/uuid"

	"staytuned/src/application/executor"
	"staytuned/src/lib/cerr"
)

var _ Fetcher = YTDLPFetcher{}

func NewYTDLPFetcher(ytdlpBinPath string, commandExecutor executor.Executor) YTDLPFetcher {
	return YTDLPFetcher{
		ytdlpBinPath:    ytdlpBinPath,
		commandExecutor: commandExecutor,
	}
}

type YTDLPFetcher struct {
	ytdlpBinPath    string
	commandExecutor executor.Executor
}

// Fetch retrieves best-available audio and/or video for the URL into
// destDir/downloads. Audio failure is fatal; video failure is logged and
// swallowed so an audio-only result can still succeed.
func (y YTDLPFetcher) Fetch(ctx context.Context, sourceURL string, destDir string, wantVideo bool, wantAudio bool) (DownloadResult, error) {
	errctx := cerr.Fields(cerr.F{
		"source_url": sourceURL,
		"dest_dir":   destDir,
	})

	if !wantVideo && !wantAudio {
		return DownloadResult{}, errctx.Error("Neither audio nor video was requested")
	}

	if ctx.Err() != nil {
		return DownloadResult{}, errctx.Wrap(ctx.Err()).Error("Context cancelled before fetching could happen")
	}

	downloadDir := filepath.Join(destDir, "downloads")
	if err := os.MkdirAll(downloadDir, os.ModePerm); err != nil {
		return DownloadResult{}, errctx.Wrap(err).Error("Failed to create download directory")
	}

	// qualify file names so concurrent fetches into the same directory
	// can't collide
	fileID := uuid.NewString()[:8]

	result := DownloadResult{}

	if wantAudio {
		audioPath, err := y.fetchAudio(sourceURL, downloadDir, fileID)
		if err != nil {
			return DownloadResult{}, errctx.Wrap(err).Error("Failed to fetch audio")
		}
		result.AudioPath = audioPath
	}

	if wantVideo {
		videoPath, err := y.fetchVideo(sourceURL, downloadDir, fileID)
		if err != nil {
			cerr.Log(errctx.Wrap(err).Error("Failed to fetch video, continuing without it"))
		} else {
			result.VideoPath = videoPath
		}
	}

	if !result.HasAudio() && !result.HasVideo() {
		return DownloadResult{}, errctx.Error("Fetch produced no artifacts")
	}

	return result, nil
}

func (y YTDLPFetcher) fetchAudio(sourceURL string, downloadDir string, fileID string) (string, error) {
	log.WithField("source_url", sourceURL).Info("Fetching best available audio")

	outputTemplate := filepath.Join(downloadDir, fmt.Sprintf("audio_%s.%%(ext)s", fileID))
	cmd := y.commandExecutor.Command(y.ytdlpBinPath,
		"-f", "bestaudio/best",
		"--no-playlist",
		"-x",
		"--audio-format", "wav",
		"--audio-quality", "192",
		"-o", outputTemplate,
		sourceURL)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", cerr.Field("error_msg", string(output)).Wrap(err).Error("Failed to run yt-dlp for audio")
	}

	return filepath.Join(downloadDir, fmt.Sprintf("audio_%s.wav", fileID)), nil
}

func (y YTDLPFetcher) fetchVideo(sourceURL string, downloadDir string, fileID string) (string, error) {
	log.WithField("source_url", sourceURL).Info("Fetching best available video")

	outputTemplate := filepath.Join(downloadDir, fmt.Sprintf("video_%s.%%(ext)s", fileID))
	cmd := y.commandExecutor.Command(y.ytdlpBinPath,
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"--no-playlist",
		"--merge-output-format", "mp4",
		"-o", outputTemplate,
		sourceURL)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", cerr.Field("error_msg", string(output)).Wrap(err).Error("Failed to run yt-dlp for video")
	}

	return filepath.Join(downloadDir, fmt.Sprintf("video_%s.mp4", fileID)), nil
}
