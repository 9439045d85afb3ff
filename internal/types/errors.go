package types

import "errors"

// Domain specific errors shared by the city API and its clients.
var (
	ErrNotFound   = errors.New("requested item not found")
	ErrBadRequest = errors.New("bad request")
)
