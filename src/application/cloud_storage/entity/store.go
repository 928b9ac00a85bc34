package entity

import "context"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . FileStore
type FileStore interface {
	WriteFile(ctx context.Context, url string, fileContent []byte, contentType string) error
}
