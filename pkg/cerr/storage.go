package cerr

import (
	"errors"
	"fmt"

	"github.com/kazz187/notevault/pkg/storage"
)

// WrapStorageReadError maps a backend read failure. A missing object becomes
// NotFound; anything else means the store could not be reached.
func WrapStorageReadError(target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Unavailable, "store unavailable", fmt.Errorf("failed to read %s: %w", target, err))
}

func WrapStorageWriteError(target string, err error) error {
	return NewError(Unavailable, "store unavailable", fmt.Errorf("failed to write %s: %w", target, err))
}

func WrapStorageDeleteError(target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Unavailable, "store unavailable", fmt.Errorf("failed to delete %s: %w", target, err))
}
