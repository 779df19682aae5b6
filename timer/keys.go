package timer

// Key selects a field of the timer's keyed configuration surface.
type Key int

const (
	// KeySeconds is the whole-seconds component of the duration.
	// Writes overwrite the duration; reads report the integer part of
	// the absolute target time (birthtime + duration).
	KeySeconds Key = iota

	// KeyMicroseconds is the fractional component of the duration.
	// Writes add value/1e6 to the duration, so whole seconds must be
	// written first; reads report the fractional part in microseconds.
	KeyMicroseconds

	// KeyDuration is the duration as fractional seconds. Writes replace
	// the duration outright, bypassing the seconds/microseconds split.
	KeyDuration

	// KeyInterval is the seconds between repeat fires.
	KeyInterval

	// KeyRepeat is the repeat count: 0 fires once, -1 forever, N > 0
	// fires N more times after the first.
	KeyRepeat

	// KeyHandler is the invocable fired when the timer comes due.
	KeyHandler

	// KeyRunning arms the timer when written truthy and cancels it when
	// written falsy. Reads always report 0.
	KeyRunning
)

var keyNames = map[Key]string{
	KeySeconds:      "seconds",
	KeyMicroseconds: "microseconds",
	KeyDuration:     "duration",
	KeyInterval:     "interval",
	KeyRepeat:       "repeat",
	KeyHandler:      "handler",
	KeyRunning:      "running",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}
