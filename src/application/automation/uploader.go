package automation

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"

	"staytuned/src/application/cloud_storage/entity"
	"staytuned/src/lib/cerr"
)

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
}

const genericContentType = "application/octet-stream"

func contentTypeFor(path string) string {
	if contentType, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return contentType
	}

	return genericContentType
}

// NewUploader scopes a file store to one bucket base URL, e.g.
// https://my-bucket.s3.amazonaws.com
func NewUploader(fileStore entity.FileStore, bucketBaseURL string) Uploader {
	return Uploader{
		fileStore:     fileStore,
		bucketBaseURL: strings.TrimSuffix(bucketBaseURL, "/"),
	}
}

type Uploader struct {
	fileStore     entity.FileStore
	bucketBaseURL string
}

// Upload puts the local file under the given key and returns its URL.
func (u Uploader) Upload(ctx context.Context, localPath string, key string) (string, error) {
	errctx := cerr.Fields(cerr.F{
		"local_path": localPath,
		"key":        key,
	})

	fileContent, err := os.ReadFile(localPath)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to read local file for upload")
	}

	destinationURL := u.bucketBaseURL + "/" + key

	log.WithFields(log.Fields{
		"local_path":      localPath,
		"destination_url": destinationURL,
	}).Info("Uploading artifact")

	if err := u.fileStore.WriteFile(ctx, destinationURL, fileContent, contentTypeFor(localPath)); err != nil {
		return "", errctx.Wrap(err).Error("Failed to upload file")
	}

	return destinationURL, nil
}
