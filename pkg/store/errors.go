package store

import "errors"

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrInvalidID     = errors.New("store: invalid id")
	ErrInvalidData   = errors.New("store: invalid data")
	ErrClosed        = errors.New("store: closed")
)
