package core

import "errors"

// Error definitions shared across engine packages.
var (
	ErrLabelOutOfRange  = errors.New("label out of range")
	ErrInterfaceExists  = errors.New("interface already registered")
	ErrNotFound         = errors.New("not found")
	ErrExists           = errors.New("already exists")
	ErrInUse            = errors.New("resource in use")
	ErrAdjacencyTooLarge = errors.New("adjacency id exceeds bounded adjacency space")
)
