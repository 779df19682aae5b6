package timer

import "fmt"

// InvalidOperationError reports a keyed read or write against a key the
// surface does not recognize. It is the only error the timer raises; all
// other malformed usage is accepted and produces a defined result.
type InvalidOperationError struct {
	Op  string
	Key Key
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("timer: invalid operation: %s key %d", e.Op, int(e.Key))
}

func invalidOp(op string, k Key) error {
	return &InvalidOperationError{Op: op, Key: k}
}
