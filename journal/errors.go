package journal

import (
	"errors"
	"fmt"
)

// ErrFolderNotFound is returned when a folder id is not registered
var ErrFolderNotFound = errors.New("folder not found")

// ErrFolderExists is returned when registering a folder id twice
var ErrFolderExists = errors.New("folder already registered")

// FolderNotFoundError carries the missing folder id. errors.Is matches ErrFolderNotFound.
type FolderNotFoundError struct {
	FolderID string
}

func (e FolderNotFoundError) Error() string {
	return fmt.Sprintf("folder %q not found", e.FolderID)
}

func (e FolderNotFoundError) Is(target error) bool {
	return target == ErrFolderNotFound
}
