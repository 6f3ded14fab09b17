package core

import "errors"

// ErrMaxIterationsReached indicates a runner hit its iteration limit.
var ErrMaxIterationsReached = errors.New("max iterations reached")
