package pipeline

import "errors"

var (
	ErrInvalidEdge      = errors.New("pipeline: invalid edge")
	ErrUnknownNode      = errors.New("pipeline: unknown node")
	ErrUnknownAlgorithm = errors.New("pipeline: unknown algorithm")
	ErrMissingInput     = errors.New("pipeline: no input image")
	ErrEmptyGraph       = errors.New("pipeline: graph has no nodes")
	ErrInvalidParameter = errors.New("pipeline: invalid parameter")
	ErrSizePending      = errors.New("pipeline: image size not yet known")
	ErrGestureActive    = errors.New("pipeline: another gesture is in progress")
	ErrBusy             = errors.New("pipeline: an execution is already in progress")
)
