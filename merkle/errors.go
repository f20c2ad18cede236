package merkle

import "errors"

// Tree errors
var (
	ErrTreeFull        = errors.New("merkle: tree is full")
	ErrInvalidDepth    = errors.New("merkle: depth out of range")
	ErrEmptyTree       = errors.New("merkle: tree has no leaves")
	ErrInvalidPosition = errors.New("merkle: position not in tree")
	ErrInvalidEncoding = errors.New("merkle: invalid node encoding")
)
