package fetch

import "context"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Fetcher
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string, destDir string, wantVideo bool, wantAudio bool) (DownloadResult, error)
}

// DownloadResult reports the artifacts a fetch produced. Audio and video
// succeed or fail independently, so either path may be empty.
type DownloadResult struct {
	AudioPath string
	VideoPath string
}

func (d DownloadResult) HasAudio() bool {
	return d.AudioPath != ""
}

func (d DownloadResult) HasVideo() bool {
	return d.VideoPath != ""
}
