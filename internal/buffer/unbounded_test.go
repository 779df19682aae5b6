package buffer_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/drake/chime/internal/buffer"
)

func TestOrderPreserved(t *testing.T) {
	in, out := buffer.Unbounded[int](100, zerolog.Nop())

	for i := 0; i < 50; i++ {
		in <- i
	}
	for i := 0; i < 50; i++ {
		if got := <-out; got != i {
			t.Fatalf("item %d: got %d", i, got)
		}
	}
}

func TestCloseFlushes(t *testing.T) {
	in, out := buffer.Unbounded[string](100, zerolog.Nop())

	in <- "a"
	in <- "b"
	close(in)

	var got []string
	for v := range out {
		got = append(got, v)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("flushed: got %v, want [a b]", got)
	}
}

func TestProducerNeverBlocks(t *testing.T) {
	in, out := buffer.Unbounded[int](10, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		// Far more than the channel buffers hold; must not deadlock
		// even with no consumer draining yet.
		for i := 0; i < 1000; i++ {
			in <- i
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked")
	}

	// Drain whatever survived the hard limit.
	close(in)
	n := 0
	for range out {
		n++
	}
	if n == 0 {
		t.Error("nothing reached the consumer")
	}
}
