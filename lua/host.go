package lua

// Host bridges the Engine to the embedding application. The abstraction
// keeps the Engine testable without real I/O.
type Host interface {
	// Print emits script output.
	Print(text string)

	// OnError reports a script or handler failure. Handler errors are
	// routed here rather than propagated: the invocation protocol has
	// no error path.
	OnError(msg string)
}
