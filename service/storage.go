package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gstorage "cloud.google.com/go/storage"
	"github.com/airbusgeo/geocube/interface/storage"
	"github.com/airbusgeo/geocube/interface/storage/uri"
)

// ErrFileNotFound is an error returned by Delete
type ErrFileNotFound struct {
	File string
}

func (e ErrFileNotFound) Error() string {
	return fmt.Sprintf("File not found: %s", e.File)
}

func isErrNotFound(err error) bool {
	var epath *os.PathError
	return errors.Is(err, gstorage.ErrObjectNotExist) ||
		(errors.As(err, &epath) && os.IsNotExist(epath))
}

// Storage is a service to persist the fetched images
type Storage interface {
	// Save persists data under the given filename and returns its uri
	Save(ctx context.Context, data []byte, filename string) (string, error)
	// Delete deletes the file from the storage
	// Raise ErrFileNotFound
	Delete(ctx context.Context, uri string) error
}

// NewStorage returns the Storage handling the scheme of storageURI:
// s3://bucket/prefix, gs://bucket/prefix or a local directory
func NewStorage(ctx context.Context, storageURI string, s3Options S3Options) (Storage, error) {
	if strings.HasPrefix(storageURI, s3Scheme) {
		return NewS3Storage(ctx, storageURI, s3Options)
	}
	return NewStorageStrategy(ctx, storageURI)
}

// StorageStrategy implements Storage using geocube.Strategy
type StorageStrategy struct {
	storage storage.Strategy
	uri     uri.DefaultUri
}

// NewStorageStrategy creates a new StorageStrategy
func NewStorageStrategy(ctx context.Context, storageURI string) (*StorageStrategy, error) {
	uri, err := uri.ParseUri(storageURI)
	if err != nil {
		return nil, fmt.Errorf("NewStorageStrategy.ParseURI: %w", err)
	}

	storageClient, err := uri.NewStorageStrategy(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewStorageStrategy: %w", err)
	}

	return &StorageStrategy{storage: storageClient, uri: uri}, nil
}

// Save implements Storage
func (ss *StorageStrategy) Save(ctx context.Context, data []byte, filename string) (string, error) {
	dst := ss.getPath(filename)
	if err := ss.storage.UploadFile(ctx, dst, io.NopCloser(bytes.NewReader(data))); err != nil {
		return "", fmt.Errorf("Save.UploadFile to %s: %w", dst, err)
	}
	return dst, nil
}

// Delete implements Storage
func (ss *StorageStrategy) Delete(ctx context.Context, file string) error {
	if err := ss.storage.Delete(ctx, file); err != nil {
		if isErrNotFound(err) {
			return ErrFileNotFound{file}
		}
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// getPath returns the uri of the file in the storage
func (ss *StorageStrategy) getPath(filename string) string {
	uri := ss.uri.String()
	if !strings.HasSuffix(uri, "/") {
		uri += "/"
	}
	return uri + strings.TrimPrefix(filename, "/")
}
