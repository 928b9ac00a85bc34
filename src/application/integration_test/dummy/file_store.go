package dummy

import (
	"context"

	"staytuned/src/application/cloud_storage/entity"
)

var _ entity.FileStore = &FileStore{}

func NewDummyFileStore() *FileStore {
	return &FileStore{
		Unavailable:  false,
		State:        make(map[string][]byte),
		ContentTypes: make(map[string]string),
	}
}

type FileStore struct {
	Unavailable  bool
	State        map[string][]byte
	ContentTypes map[string]string
}

func (f *FileStore) WriteFile(_ context.Context, url string, fileContent []byte, contentType string) error {
	if f.Unavailable {
		return NetworkFailure
	}

	f.State[url] = append([]byte{}, fileContent...)
	f.ContentTypes[url] = contentType

	return nil
}
