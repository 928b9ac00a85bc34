package store

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"staytuned/src/application/cloud_storage/entity"
	"staytuned/src/lib/werror"
)

var _ entity.FileStore = S3FileStore{}

const s3HostSuffix = ".s3.amazonaws.com"

type S3FileStore struct {
	s3Client *s3.S3
}

func NewS3FileStore(accessKeyID string, secretAccessKey string, region string) (S3FileStore, error) {
	awsSession, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(accessKeyID, secretAccessKey, ""),
	})
	if err != nil {
		return S3FileStore{}, werror.WrapError("Failed to create AWS session", err)
	}

	return S3FileStore{
		s3Client: s3.New(awsSession),
	}, nil
}

// URLFor renders the object URL artifacts are addressed by.
func (s S3FileStore) URLFor(bucket string, key string) string {
	return fmt.Sprintf("https://%s%s/%s", bucket, s3HostSuffix, key)
}

func (s S3FileStore) WriteFile(ctx context.Context, fileURL string, fileContent []byte, contentType string) error {
	bucket, key, err := s.bucketAndKeyFromURL(fileURL)
	if err != nil {
		return werror.WrapError("Couldn't extract object key from URL", err)
	}

	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(fileContent),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return werror.WrapError("Error occurred when uploading file", err)
	}

	return nil
}

func (s S3FileStore) bucketAndKeyFromURL(fileURL string) (string, string, error) {
	trimmed := strings.TrimPrefix(fileURL, "https://")
	if trimmed == fileURL {
		return "", "", werror.WrapError("File path given not in the S3 format", nil)
	}

	chunks := strings.SplitN(trimmed, "/", 2)
	if len(chunks) != 2 || !strings.HasSuffix(chunks[0], s3HostSuffix) {
		return "", "", werror.WrapError("File path given not in the S3 format", nil)
	}

	bucket := strings.TrimSuffix(chunks[0], s3HostSuffix)
	return bucket, chunks[1], nil
}
