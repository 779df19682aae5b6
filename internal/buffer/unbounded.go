// Package buffer provides an unbounded channel buffer. The runloop must
// never block a producer (the watcher goroutine), so signals queue up in
// memory until the loop drains them.
package buffer

import (
	"github.com/eapache/queue"
	"github.com/rs/zerolog"
)

// Unbounded creates a channel buffer that grows as needed. It returns a
// write-only channel to feed data in and a read-only channel to read
// data out. Closing the input flushes the queue and closes the output.
//
// hardLimit caps memory: past it the oldest item is dropped, which for
// reload-style signals is the least destructive recovery.
func Unbounded[T any](hardLimit int, log zerolog.Logger) (chan<- T, <-chan T) {
	in := make(chan T, 10)  // small input buffer to reduce context switching
	out := make(chan T, 10) // small output buffer

	go func() {
		defer close(out)

		q := queue.New()

		for {
			var next T
			var downstream chan T

			// Enable the out case only if there is data to send.
			if q.Length() > 0 {
				next = q.Peek().(T)
				downstream = out
			}

			select {
			case val, ok := <-in:
				if !ok {
					// Input closed. Flush the queue then exit.
					for q.Length() > 0 {
						out <- q.Remove().(T)
					}
					return
				}
				if q.Length() >= hardLimit {
					log.Warn().Int("limit", hardLimit).Msg("buffer full, dropping oldest item")
					q.Remove()
				}
				q.Add(val)

			case downstream <- next:
				q.Remove()
			}
		}
	}()

	return in, out
}
