// Command chime hosts the timer subsystem: it loads a Lua script into
// the VM and drives the scheduler runloop until interrupted. All VM and
// timer state lives on the runloop goroutine.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/drake/chime/clock"
	"github.com/drake/chime/config"
	"github.com/drake/chime/internal/buffer"
	"github.com/drake/chime/internal/watch"
	"github.com/drake/chime/lua"
	"github.com/drake/chime/sched"
)

// consoleHost routes script output and errors to the terminal.
type consoleHost struct {
	log zerolog.Logger
}

func (h consoleHost) Print(text string) {
	fmt.Println(text)
}

func (h consoleHost) OnError(msg string) {
	h.log.Error().Msg(msg)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "chime:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", config.File(), "path to config.yaml")
	script := flag.String("script", "", "script to load (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil && *script == "" {
		return err
	}
	if *script != "" {
		cfg.Script = *script
	}
	if cfg.Script == "" {
		return fmt.Errorf("no script configured")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	scheduler := sched.New(clock.System{}, sched.WithLogger(log))
	host := consoleHost{log: log}
	engine := lua.NewEngine(host, scheduler.Clock(), scheduler, lua.WithLogger(log))
	defer engine.Close()

	if err := boot(engine, cfg.Script); err != nil {
		return err
	}
	log.Info().Str("script", cfg.Script).Msg("script loaded")

	// Reload signals cross from the watcher goroutine onto the runloop
	// through an unbounded buffer; the loop itself never blocks them.
	var reload <-chan struct{}
	if cfg.Watch {
		in, out := buffer.Unbounded[struct{}](64, log)
		w, err := watch.New(cfg.Script, in, log)
		if err != nil {
			return fmt.Errorf("watching script: %w", err)
		}
		defer w.Close()
		reload = out
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Poll.Std())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			log.Info().Msg("shutting down")
			return nil

		case <-ticker.C:
			scheduler.Dispatch()

		case <-reload:
			log.Info().Str("script", cfg.Script).Msg("reloading script")
			if err := boot(engine, cfg.Script); err != nil {
				log.Error().Err(err).Msg("reload failed")
			}
		}
	}
}

// boot resets the VM to a fresh state and loads the script. Timers from
// the previous state are cancelled lazily; their alarms drain through
// the scheduler as no-ops.
func boot(engine *lua.Engine, script string) error {
	if err := engine.Init(); err != nil {
		return err
	}
	return engine.DoFile(script)
}
