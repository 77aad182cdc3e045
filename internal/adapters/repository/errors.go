package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("result not found")
	ErrDuplicate     = errors.New("result already stored")
	ErrCorruptRecord = errors.New("corrupt result record")
	ErrClosed        = errors.New("store closed")
)
