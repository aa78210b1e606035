package supersede

import "errors"

// ErrSuperseded is the cancellation cause of a call replaced by a newer call
// with the same key.
var ErrSuperseded = errors.New("supersede: call superseded by a newer call")
