package store

import "github.com/pkg/errors"

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrDuplicateTask = errors.New("duplicate task name")
)
