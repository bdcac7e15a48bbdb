package storage

import "errors"

var (
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrInvalidData        = errors.New("invalid data")
	ErrStorageInit        = errors.New("storage initialization failed")
	ErrFileOperation      = errors.New("file operation failed")
	ErrUnsupportedBackend = errors.New("unsupported storage type")
)
