package domain

import "errors"

var (
	ErrFileAccess      = errors.New("cannot read structure file")
	ErrEmptyStructure  = errors.New("structure file is empty")
	ErrInvalidSettings = errors.New("invalid job settings")
	ErrNoOutput        = errors.New("job has no output")
	ErrNotSubmitted    = errors.New("job was not submitted")
)
