package separation

import (
	"context"
	"time"

	"staytuned/src/lib/werror"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Stem is one isolated track produced by the separation model.
type Stem string

const (
	StemDrums  Stem = "drums"
	StemBass   Stem = "bass"
	StemOther  Stem = "other"
	StemVocals Stem = "vocals"

	// StemInstrumental is derived, not produced by the model: the sum of
	// all non-vocal stems.
	StemInstrumental Stem = "pure_instrumental"
)

// ModelStems is the fixed output order of the model.
var ModelStems = []Stem{StemDrums, StemBass, StemOther, StemVocals}

// InstrumentalParts are the stems summed into the instrumental composite.
var InstrumentalParts = []Stem{StemDrums, StemBass, StemOther}

// StemPaths maps stem labels to output file paths.
type StemPaths = map[Stem]string

type Model string

const (
	InvalidModel Model = ""
	HTDemucs     Model = "htdemucs"
	HTDemucsFT   Model = "htdemucs_ft"
	MDXExtra     Model = "mdx_extra"
)

func ConvertToModel(val string) (Model, error) {
	switch val {
	case string(HTDemucs):
		return HTDemucs, nil
	case string(HTDemucsFT):
		return HTDemucsFT, nil
	case string(MDXExtra):
		return MDXExtra, nil
	default:
		return InvalidModel, werror.WrapError("Value does not match any separation model", nil)
	}
}

// Window selects a time slice of the prepared waveform. A zero or
// negative Start begins at the front, a zero or negative Duration
// extends to the end.
type Window struct {
	Start    time.Duration
	Duration time.Duration
}

func (w Window) IsZero() bool {
	return w.Start == 0 && w.Duration == 0
}

//counterfeiter:generate . Extractor
type Extractor interface {
	Separate(ctx context.Context, audioPath string, outputDir string, window Window) (StemPaths, error)
}
