package broadcast

import "errors"

// ErrClosed is returned by Recv once its Bus has been closed and no
// buffered values remain, signaling orderly shutdown to the receiver.
var ErrClosed = errors.New("broadcast: bus closed")
