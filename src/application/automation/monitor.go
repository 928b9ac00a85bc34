package automation

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"

	"staytuned/src/application/fetch"
	"staytuned/src/application/separation"
	"staytuned/src/lib/cerr"
	"staytuned/src/lib/working_dir"
)

// ProcessedSet deduplicates resolved URLs across polling iterations. It
// lives for the duration of one Run (or whatever the caller decides), so
// the set resets on process restart.
type ProcessedSet map[string]bool

func NewProcessedSet() ProcessedSet {
	return ProcessedSet{}
}

// Report lists the uploaded artifact URLs for one processed link.
type Report struct {
	VideoURL       string
	AudioTrackURLs []string
}

func NewMonitor(
	resolver Resolver,
	fetcher fetch.Fetcher,
	extractor separation.Extractor,
	uploader Uploader,
	workingDirStr string,
	extractAudio bool,
) (Monitor, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return Monitor{}, cerr.Field("working_dir_str", workingDirStr).Wrap(err).Error("Failed to create working dir")
	}

	return Monitor{
		resolver:     resolver,
		fetcher:      fetcher,
		extractor:    extractor,
		uploader:     uploader,
		workingDir:   workingDir,
		extractAudio: extractAudio,
	}, nil
}

type Monitor struct {
	resolver     Resolver
	fetcher      fetch.Fetcher
	extractor    separation.Extractor
	uploader     Uploader
	workingDir   working_dir.WorkingDir
	extractAudio bool
}

// ProcessLink runs one full pass: resolve the redirect, extract, upload,
// clean up. A nil report with nil error means there was nothing to do —
// the target wasn't recognized or was already processed.
func (m Monitor) ProcessLink(ctx context.Context, redirectURL string, processed ProcessedSet) (*Report, error) {
	resolvedURL, recognized, err := m.resolver.Resolve(ctx, redirectURL)
	if err != nil {
		return nil, cerr.Field("redirect_url", redirectURL).Wrap(err).Error("Failed to resolve redirect URL")
	}

	if !recognized {
		log.WithField("resolved_url", resolvedURL).Warn("URL does not resolve to a recognized video host")
		return nil, nil
	}

	if processed[resolvedURL] {
		log.WithField("resolved_url", resolvedURL).Info("URL already processed, skipping")
		return nil, nil
	}

	errctx := cerr.Field("resolved_url", resolvedURL)

	tempDir, err := os.MkdirTemp(m.workingDir.TempDir(), "automation-*")
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to create temp dir for extraction")
	}
	defer os.RemoveAll(tempDir)

	log.WithField("resolved_url", resolvedURL).Info("Starting extraction")
	downloadResult, err := m.fetcher.Fetch(ctx, resolvedURL, tempDir, true, m.extractAudio)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to fetch media")
	}

	audioTrackPaths, err := m.separateAudio(ctx, downloadResult, tempDir)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to separate audio")
	}

	report := Report{}
	localFiles := []string{}

	if downloadResult.HasVideo() {
		videoURL, err := m.uploader.Upload(ctx, downloadResult.VideoPath, "videos/"+filepath.Base(downloadResult.VideoPath))
		if err != nil {
			return nil, errctx.Wrap(err).Error("Failed to upload video")
		}

		report.VideoURL = videoURL
		localFiles = append(localFiles, downloadResult.VideoPath)
	}

	for _, audioPath := range audioTrackPaths {
		audioURL, err := m.uploader.Upload(ctx, audioPath, "audio/"+filepath.Base(audioPath))
		if err != nil {
			return nil, errctx.Wrap(err).Error("Failed to upload audio track")
		}

		report.AudioTrackURLs = append(report.AudioTrackURLs, audioURL)
		localFiles = append(localFiles, audioPath)
	}

	m.cleanupLocalFiles(localFiles)

	processed[resolvedURL] = true

	return &report, nil
}

// Run polls the redirect URL until the context is cancelled. Iteration
// errors are logged and followed by the normal sleep; they never stop
// the loop.
func (m Monitor) Run(ctx context.Context, redirectURL string, interval time.Duration) {
	log.WithFields(log.Fields{
		"redirect_url": redirectURL,
		"interval":     interval.String(),
	}).Info("Starting monitor")

	processed := NewProcessedSet()

	for {
		report, err := m.ProcessLink(ctx, redirectURL, processed)
		switch {
		case err != nil:
			cerr.Log(err)
		case report != nil:
			logReport(*report)
		}

		select {
		case <-ctx.Done():
			log.Info("Monitor stopped")
			return
		case <-time.After(interval):
		}
	}
}

func (m Monitor) separateAudio(ctx context.Context, downloadResult fetch.DownloadResult, tempDir string) ([]string, error) {
	if !m.extractAudio || !downloadResult.HasAudio() {
		return nil, nil
	}

	stems, err := m.extractor.Separate(ctx, downloadResult.AudioPath, filepath.Join(tempDir, "separated"), separation.Window{})
	if err != nil {
		return nil, err
	}

	// the raw download is superseded by its stems
	if err := os.Remove(downloadResult.AudioPath); err != nil {
		log.WithField("audio_path", downloadResult.AudioPath).Error("Failed to remove downloaded audio")
	}

	stemOrder := append([]separation.Stem{}, separation.ModelStems...)
	stemOrder = append(stemOrder, separation.StemInstrumental)

	audioTrackPaths := []string{}
	for _, stem := range stemOrder {
		if stemPath, ok := stems[stem]; ok {
			audioTrackPaths = append(audioTrackPaths, stemPath)
		}
	}

	return audioTrackPaths, nil
}

func (m Monitor) cleanupLocalFiles(localFiles []string) {
	for _, localFile := range localFiles {
		if err := os.Remove(localFile); err != nil {
			log.WithField("local_file", localFile).Error("Failed to delete local file")
			continue
		}

		log.WithField("local_file", localFile).Info("Deleted local file")
	}
}

func logReport(report Report) {
	log.Info("Processing complete, uploaded files:")
	if report.VideoURL != "" {
		log.WithField("video_url", report.VideoURL).Info("Uploaded video")
	}

	for _, audioURL := range report.AudioTrackURLs {
		log.WithField("audio_url", audioURL).Info("Uploaded audio track")
	}
}
