package models

import "errors"

var (
	ErrInvalidCategory = errors.New("invalid or missing question category")
	ErrMissingText     = errors.New("missing question text")
	ErrMissingID       = errors.New("missing question id")
)
