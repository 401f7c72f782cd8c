package sentinelhub

import (
	"fmt"

	"github.com/airbusgeo/parcel-imagery/common"
	"github.com/airbusgeo/parcel-imagery/service"
)

// AuthenticationError is returned when a token cannot be obtained from the provider,
// or when a request is still unauthorized with a renewed token
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("sentinelhub authentication: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// ProviderRequestError is returned when the process api answers with an unexpected status
type ProviderRequestError struct {
	Status int
	Body   string
}

func (e *ProviderRequestError) Error() string {
	return fmt.Sprintf("sentinelhub process request failed: %d - %s", e.Status, e.Body)
}

// Temporary returns true for the statuses worth a retry (429, 5xx)
func (e *ProviderRequestError) Temporary() bool {
	return service.TemporaryStatus(e.Status)
}

// StorageError is returned when an image cannot be stored.
// The images of the previous bands are kept in the storage.
type StorageError struct {
	Band common.SpectralBand
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storing band %s: %v", e.Band, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
