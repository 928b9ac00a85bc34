package dummy

import (
	"os"
	"strings"

	"staytuned/src/application/executor"
)

var _ executor.Executor = YTDLPExecutor{}

func NewDummyYTDLPExecutor() *YTDLPExecutor {
	return &YTDLPExecutor{
		Unavailable:      false,
		VideoUnavailable: false,
		URLContent:       make(URLContent),
		VideoURLContent:  make(URLContent),
	}
}

type URLContent map[string][]byte

// YTDLPExecutor emulates yt-dlp: it serves canned bytes per URL and
// honors the -o output template. VideoUnavailable fails only the video
// variant of the command.
type YTDLPExecutor struct {
	Unavailable      bool
	VideoUnavailable bool
	URLContent       URLContent
	VideoURLContent  URLContent
}

func (y *YTDLPExecutor) AddURL(url string, content []byte) {
	y.URLContent[url] = append([]byte{}, content...)
}

func (y *YTDLPExecutor) AddVideoURL(url string, content []byte) {
	y.VideoURLContent[url] = append([]byte{}, content...)
}

func (y YTDLPExecutor) Command(_ string, arg ...string) executor.Command {
	return YTDLPCommand{
		Unavailable:      y.Unavailable,
		VideoUnavailable: y.VideoUnavailable,
		Args:             arg,
		URLContent:       y.URLContent,
		VideoURLContent:  y.VideoURLContent,
	}
}

type YTDLPCommand struct {
	Unavailable      bool
	VideoUnavailable bool
	Args             []string
	URLContent       URLContent
	VideoURLContent  URLContent
}

func (y YTDLPCommand) SetDir(_ string) {}

func (y YTDLPCommand) CombinedOutput() ([]byte, error) {
	if y.Unavailable {
		return nil, NetworkFailure
	}

	outputTemplate, err := getOptionValue(y.Args, "-o")
	if err != nil {
		return nil, err
	}

	sourceURL := y.Args[len(y.Args)-1]

	fileContents, ok := y.URLContent[sourceURL]
	if !ok {
		return nil, NotFound
	}

	outputPath := ""
	switch {
	case hasFlag(y.Args, "-x"):
		outputPath = strings.Replace(outputTemplate, "%(ext)s", "wav", 1)
	case hasFlag(y.Args, "--merge-output-format"):
		if y.VideoUnavailable {
			return nil, NetworkFailure
		}
		if videoContents, ok := y.VideoURLContent[sourceURL]; ok {
			fileContents = videoContents
		}
		outputPath = strings.Replace(outputTemplate, "%(ext)s", "mp4", 1)
	default:
		return nil, UnexpectedInput
	}

	if err := os.WriteFile(outputPath, fileContents, os.ModePerm); err != nil {
		return nil, err
	}

	return []byte("Success"), nil
}

func hasFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}

	return false
}
