package repository

import "errors"

var (
	// ErrAlreadySettled means a request or expense in the batch was taken
	// by another live settlement between validation and commit.
	ErrAlreadySettled = errors.New("already referenced by a settlement")
	// ErrDuplicateNumber means the generated settlement number collided.
	ErrDuplicateNumber = errors.New("duplicate settlement number")
)
