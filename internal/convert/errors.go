package convert

import "errors"

var (
	// ErrMissingInput reports that the weights archive could not be found.
	ErrMissingInput = errors.New("input file not found")
	// ErrKeyCollision reports that two tensors would share a name after renaming.
	ErrKeyCollision = errors.New("tensor key collision")
)
