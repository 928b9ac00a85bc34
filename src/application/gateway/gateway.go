package gateway

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"staytuned/src/application/fetch"
	"staytuned/src/application/separation"
	"staytuned/src/lib/cerr"
	"staytuned/src/lib/working_dir"
)

var supportedUploadExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
}

var videoMediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/webm",
	".avi":  "video/webm",
}

const defaultMediaType = "audio/wav"

func NewGateway(extractor separation.Extractor, fetcher fetch.Fetcher, outputDirStr string) (Gateway, error) {
	outputDir, err := filepath.Abs(outputDirStr)
	if err != nil {
		return Gateway{}, cerr.Field("output_dir_str", outputDirStr).Wrap(err).Error("Failed to resolve output dir")
	}

	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return Gateway{}, cerr.Field("output_dir", outputDir).Wrap(err).Error("Failed to create output dir")
	}

	workingDir, err := working_dir.NewWorkingDir(filepath.Join(outputDir, "temp"))
	if err != nil {
		return Gateway{}, cerr.Wrap(err).Error("Failed to create working dir")
	}

	return Gateway{
		extractor:  extractor,
		fetcher:    fetcher,
		outputDir:  outputDir,
		workingDir: workingDir,
	}, nil
}

type Gateway struct {
	extractor  separation.Extractor
	fetcher    fetch.Fetcher
	outputDir  string
	workingDir working_dir.WorkingDir
}

type extractFileResponse struct {
	Status string   `json:"status"`
	Files  []string `json:"files"`
}

type extractURLRequest struct {
	URL           string `json:"url"`
	DownloadVideo bool   `json:"download_video"`
	ExtractAudio  *bool  `json:"extract_audio"`
}

type extractURLResponse struct {
	Status   string   `json:"status"`
	Files    []string `json:"files"`
	HasVideo bool     `json:"has_video"`
}

type cleanupResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ExtractFile separates an uploaded audio file into stems.
func (g Gateway) ExtractFile(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrorResponse(c, NewUnsupportedFileError(err))
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !supportedUploadExts[ext] {
		return ErrorResponse(c, NewUnsupportedFileError(nil))
	}

	uploadPath, removeUpload, err := g.saveUpload(fileHeader, ext)
	if err != nil {
		cerr.Log(err)
		return ErrorResponse(c, NewInternalError(err))
	}
	defer removeUpload()

	stems, err := g.extractor.Separate(c.Request().Context(), uploadPath, g.outputDir, separation.Window{})
	if err != nil {
		cerr.Log(err)
		return ErrorResponse(c, NewExtractionFailedError(err))
	}

	return c.JSON(http.StatusOK, extractFileResponse{
		Status: "success",
		Files:  stemFileNames(stems),
	})
}

// ExtractURL downloads a URL and separates its audio, optionally keeping
// the video alongside.
func (g Gateway) ExtractURL(c echo.Context) error {
	request := extractURLRequest{}
	if err := c.Bind(&request); err != nil {
		return ErrorResponse(c, NewMissingURLError())
	}

	if request.URL == "" {
		return ErrorResponse(c, NewMissingURLError())
	}

	extractAudio := true
	if request.ExtractAudio != nil {
		extractAudio = *request.ExtractAudio
	}

	// reject before any fetch work happens
	if !extractAudio && !request.DownloadVideo {
		return ErrorResponse(c, NewMissingOptionError())
	}

	ctx := c.Request().Context()

	tempDir, err := os.MkdirTemp(g.workingDir.TempDir(), "url-*")
	if err != nil {
		cerr.Log(cerr.Wrap(err).Error("Failed to create temp dir for URL extraction"))
		return ErrorResponse(c, NewInternalError(err))
	}
	defer os.RemoveAll(tempDir)

	downloadResult, err := g.fetcher.Fetch(ctx, request.URL, tempDir, request.DownloadVideo, extractAudio)
	if err != nil {
		cerr.Log(cerr.Field("url", request.URL).Wrap(err).Error("Failed to fetch URL"))
		return ErrorResponse(c, NewExtractionFailedError(err))
	}

	files := []string{}

	if extractAudio && downloadResult.HasAudio() {
		stems, err := g.extractor.Separate(ctx, downloadResult.AudioPath, g.outputDir, separation.Window{})
		if err != nil {
			cerr.Log(cerr.Field("url", request.URL).Wrap(err).Error("Failed to separate downloaded audio"))
			return ErrorResponse(c, NewExtractionFailedError(err))
		}

		// the raw download is superseded by its stems
		_ = os.Remove(downloadResult.AudioPath)

		files = append(files, stemFileNames(stems)...)
	}

	if downloadResult.HasVideo() {
		videoName := "video_" + uuid.NewString()[:8] + filepath.Ext(downloadResult.VideoPath)
		if err := moveFile(downloadResult.VideoPath, filepath.Join(g.outputDir, videoName)); err != nil {
			cerr.Log(err)
			return ErrorResponse(c, NewInternalError(err))
		}

		files = append(files, videoName)
	}

	return c.JSON(http.StatusOK, extractURLResponse{
		Status:   "success",
		Files:    files,
		HasVideo: downloadResult.HasVideo(),
	})
}

// Stream serves a produced file for in-browser playback with range
// request support.
func (g Gateway) Stream(c echo.Context) error {
	filePath, err := g.resolveOutputFile(c.Param("filename"))
	if err != nil {
		return ErrorResponse(c, NewFileNotFoundError(err))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return ErrorResponse(c, NewFileNotFoundError(err))
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return ErrorResponse(c, NewInternalError(err))
	}

	c.Response().Header().Set(echo.HeaderContentType, mediaTypeFor(filePath))
	http.ServeContent(c.Response(), c.Request(), filepath.Base(filePath), fileInfo.ModTime(), file)
	return nil
}

// Download serves a produced file as an attachment.
func (g Gateway) Download(c echo.Context) error {
	filePath, err := g.resolveOutputFile(c.Param("filename"))
	if err != nil {
		return ErrorResponse(c, NewFileNotFoundError(err))
	}

	c.Response().Header().Set(echo.HeaderContentType, mediaTypeFor(filePath))
	return c.Attachment(filePath, filepath.Base(filePath))
}

// Cleanup deletes and recreates the output directory.
func (g Gateway) Cleanup(c echo.Context) error {
	if err := os.RemoveAll(g.outputDir); err != nil {
		cerr.Log(cerr.Field("output_dir", g.outputDir).Wrap(err).Error("Failed to remove output dir"))
		return ErrorResponse(c, NewInternalError(err))
	}

	if err := os.MkdirAll(g.outputDir, os.ModePerm); err != nil {
		cerr.Log(cerr.Field("output_dir", g.outputDir).Wrap(err).Error("Failed to recreate output dir"))
		return ErrorResponse(c, NewInternalError(err))
	}

	// the working dir lives inside the output dir, so it was wiped too
	if err := os.MkdirAll(g.workingDir.TempDir(), os.ModePerm); err != nil {
		cerr.Log(cerr.Field("temp_dir", g.workingDir.TempDir()).Wrap(err).Error("Failed to recreate working dir"))
		return ErrorResponse(c, NewInternalError(err))
	}

	log.WithField("output_dir", g.outputDir).Info("Output folder cleaned")

	return c.JSON(http.StatusOK, cleanupResponse{
		Status:  "success",
		Message: "Output folder cleaned",
	})
}

func (g Gateway) OutputDir() string {
	return g.outputDir
}

func (g Gateway) saveUpload(fileHeader *multipart.FileHeader, ext string) (string, func(), error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", nil, cerr.Wrap(err).Error("Failed to open uploaded file")
	}
	defer src.Close()

	tempFile, err := os.CreateTemp(g.workingDir.TempDir(), "upload-*"+ext)
	if err != nil {
		return "", nil, cerr.Wrap(err).Error("Failed to create temp file for upload")
	}

	if _, err := io.Copy(tempFile, src); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempFile.Name())
		return "", nil, cerr.Wrap(err).Error("Failed to save uploaded file")
	}

	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempFile.Name())
		return "", nil, cerr.Wrap(err).Error("Failed to flush uploaded file")
	}

	removeFn := func() {
		_ = os.Remove(tempFile.Name())
	}

	return tempFile.Name(), removeFn, nil
}

func (g Gateway) resolveOutputFile(fileName string) (string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || strings.Contains(fileName, "..") {
		return "", cerr.Field("file_name", fileName).Error("Invalid file name")
	}

	filePath := filepath.Join(g.outputDir, fileName)
	if _, err := os.Stat(filePath); err != nil {
		return "", cerr.Field("file_path", filePath).Wrap(err).Error("File not found")
	}

	return filePath, nil
}

func stemFileNames(stems separation.StemPaths) []string {
	stemOrder := append([]separation.Stem{}, separation.ModelStems...)
	stemOrder = append(stemOrder, separation.StemInstrumental)

	fileNames := []string{}
	for _, stem := range stemOrder {
		if stemPath, ok := stems[stem]; ok {
			fileNames = append(fileNames, filepath.Base(stemPath))
		}
	}

	return fileNames
}

func mediaTypeFor(filePath string) string {
	if mediaType, ok := videoMediaTypes[strings.ToLower(filepath.Ext(filePath))]; ok {
		return mediaType
	}

	return defaultMediaType
}

func moveFile(sourcePath string, destPath string) error {
	if err := os.Rename(sourcePath, destPath); err == nil {
		return nil
	}

	// rename can fail across filesystems, fall back to copy
	contents, err := os.ReadFile(sourcePath)
	if err != nil {
		return cerr.Field("source_path", sourcePath).Wrap(err).Error("Failed to read file for move")
	}

	if err := os.WriteFile(destPath, contents, os.ModePerm); err != nil {
		return cerr.Field("dest_path", destPath).Wrap(err).Error("Failed to write file for move")
	}

	return os.Remove(sourcePath)
}
