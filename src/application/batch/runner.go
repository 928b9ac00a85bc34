package batch

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/apex/log"

	"staytuned/src/application/separation"
	"staytuned/src/lib/cerr"
)

// Entry is success-complete or failure-complete, never partially populated.
type Entry struct {
	Stems separation.StemPaths
	Err   error
}

func (e Entry) Failed() bool {
	return e.Err != nil
}

// Result maps each input path to its separation outcome.
type Result map[string]Entry

func NewRunner(extractor separation.Extractor, outputDir string) Runner {
	return Runner{
		extractor: extractor,
		outputDir: outputDir,
	}
}

type Runner struct {
	extractor separation.Extractor
	outputDir string
}

// Run processes the inputs one at a time, in input order. One job at a
// time bounds peak memory and accelerator use. A failed file is recorded
// as an error entry; it never aborts the rest of the batch.
func (r Runner) Run(ctx context.Context, paths []string) Result {
	results := Result{}

	for _, audioPath := range paths {
		fileStem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
		fileOutputDir := filepath.Join(r.outputDir, fileStem)

		logger := log.WithFields(log.Fields{
			"audio_path": audioPath,
			"output_dir": fileOutputDir,
		})
		logger.Info("Processing batch entry")

		stems, err := r.extractor.Separate(ctx, audioPath, fileOutputDir, separation.Window{})
		if err != nil {
			err = cerr.Field("audio_path", audioPath).Wrap(err).Error("Failed to process batch entry")
			cerr.Log(err)
			results[audioPath] = Entry{Err: err}
			continue
		}

		logger.Info("Batch entry complete")
		results[audioPath] = Entry{Stems: stems}
	}

	return results
}
