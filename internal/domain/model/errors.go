package model

import "errors"

// Input validation errors abort a training run before any artifact is written.
var (
	ErrEmptyTable      = errors.New("customer table is empty")
	ErrMissingTarget   = errors.New("target column Churn not found")
	ErrInvalidTarget   = errors.New("target column Churn must contain only 0 and 1")
	ErrAgeOutOfRange   = errors.New("age outside supported range 18-100")
	ErrColumnLength    = errors.New("column length does not match frame rows")
	ErrDuplicateColumn = errors.New("column already exists")
)

// Training and serving errors.
var (
	ErrNoCandidates   = errors.New("no model candidate could be trained")
	ErrBundleNotFound = errors.New("artifact bundle not found")
	ErrNotFitted      = errors.New("transformer used before fit")
	ErrShapeMismatch  = errors.New("feature matrix shape mismatch")
	ErrInvalidInput   = errors.New("invalid input")
)
