package queue

import "errors"

// ErrClosed is returned by Push once Quit has been called.
var ErrClosed = errors.New("queue: closed")
