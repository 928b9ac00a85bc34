package store

import (
	"context"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"staytuned/src/application/cloud_storage/entity"
	"staytuned/src/lib/werror"
)

var _ entity.FileStore = GoogleFileStore{}

const GOOGLE_STORAGE_HOST = "https://storage.googleapis.com"

type GoogleFileStore struct {
	storageClient *storage.Client
}

func NewGoogleFileStore(jsonKey string) (GoogleFileStore, error) {
	googleStorageClient, err := storage.NewClient(context.Background(), option.WithCredentialsJSON([]byte(jsonKey)))
	if err != nil {
		return GoogleFileStore{}, werror.WrapError("Failed to create Google Cloud Storage client", err)
	}

	return GoogleFileStore{
		storageClient: googleStorageClient,
	}, nil
}

// URLFor renders the object URL artifacts are addressed by.
func (g GoogleFileStore) URLFor(bucket string, key string) string {
	return GOOGLE_STORAGE_HOST + "/" + bucket + "/" + key
}

func (g GoogleFileStore) WriteFile(ctx context.Context, fileURL string, fileContent []byte, contentType string) (err error) {
	bucket, filePath, err := g.bucketAndPathFromURL(fileURL)
	if err != nil {
		return werror.WrapError("Couldn't extract file path from URL", err)
	}

	objectHandle := g.storageClient.Bucket(bucket).Object(filePath)
	writer := objectHandle.NewWriter(ctx)
	writer.ContentType = contentType
	defer func() {
		closeErr := writer.Close()
		if err == nil && closeErr != nil {
			err = werror.WrapError("Error occurred when closing the upload stream", closeErr)
		}
	}()

	if _, err = writer.Write(fileContent); err != nil {
		return werror.WrapError("Error occurred when uploading file", err)
	}

	return nil
}

func (g GoogleFileStore) bucketAndPathFromURL(fileURL string) (string, string, error) {
	if !strings.HasPrefix(fileURL, GOOGLE_STORAGE_HOST+"/") {
		return "", "", werror.WrapError("File path given not in the Google cloud storage format", nil)
	}

	bucketAndPath := strings.TrimPrefix(fileURL, GOOGLE_STORAGE_HOST+"/")

	chunks := strings.SplitN(bucketAndPath, "/", 2)
	if len(chunks) != 2 {
		return "", "", werror.WrapError("File path given not in the Google cloud storage format", nil)
	}

	return chunks[0], chunks[1], nil
}
