// Package lua embeds gopher-lua and exposes the timer subsystem to
// scripts. The Engine owns the VM lifecycle and the timer registry; the
// scheduler owns wake-ups and dispatch.
package lua

import (
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	glua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/drake/chime/clock"
	"github.com/drake/chime/sched"
	"github.com/drake/chime/timer"
)

const chunkCacheSize = 100

// Engine wraps gopher-lua and manages the VM lifecycle. It is a pure
// mechanism: it knows how to run Lua code and expose the timer API. It
// does NOT own scheduling; that stays with the scheduler it is given.
type Engine struct {
	L *glua.LState

	host  Host
	clock clock.Clock
	sched *sched.Scheduler
	log   zerolog.Logger

	// Cached table reference
	chimeTable *glua.LTable

	// Compiled-chunk cache for repeated DoString sources
	chunkCache *lru.Cache[string, *glua.FunctionProto]

	// Timer registry. This doubles as the explicit reachable-roots set:
	// every live timer here reports its handler to MarkRoots, keeping
	// handlers visible to a collecting host while wake-ups are pending.
	timers map[int]*timer.Timer
	nextID int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an Engine bound to a host, clock, and scheduler.
func NewEngine(host Host, clk clock.Clock, s *sched.Scheduler, opts ...Option) *Engine {
	cache, _ := lru.New[string, *glua.FunctionProto](chunkCacheSize)
	e := &Engine{
		host:       host,
		clock:      clk,
		sched:      s,
		log:        zerolog.Nop(),
		chunkCache: cache,
		timers:     make(map[int]*timer.Timer),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- Lifecycle ---

// Init initializes (or re-initializes) the Lua VM with fresh state. It
// registers the API but does not load any scripts; that's the caller's
// job. Timers from a previous state are cancelled, not retracted: their
// alarms drain through the scheduler as no-ops.
func (e *Engine) Init() error {
	if e.L != nil {
		e.L.Close()
	}
	e.L = glua.NewState()

	cache, _ := lru.New[string, *glua.FunctionProto](chunkCacheSize)
	e.chunkCache = cache

	e.CancelAll()

	e.registerAPIs()
	return nil
}

// Close cancels outstanding timers and tears down the Lua state.
func (e *Engine) Close() {
	e.CancelAll()
	if e.L != nil {
		e.L.Close()
		e.L = nil
	}
}

// --- Execution primitives ---

// DoString executes a raw string of Lua code. The name parameter is used
// for stack traces. Compiled chunks are cached, so repeated execution of
// the same source skips the parser.
func (e *Engine) DoString(name, code string) error {
	proto, ok := e.chunkCache.Get(code)
	if !ok {
		chunk, err := parse.Parse(strings.NewReader(code), name)
		if err != nil {
			return err
		}
		proto, err = glua.Compile(chunk, name)
		if err != nil {
			return err
		}
		e.chunkCache.Add(code, proto)
	}
	e.L.Push(e.L.NewFunctionFromProto(proto))
	return e.L.PCall(0, 0, nil)
}

// DoFile executes a Lua file from the filesystem. It temporarily adjusts
// package.path so the script can require siblings.
func (e *Engine) DoFile(path string) error {
	absPath, err := filepath.Abs(expandTilde(path))
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)

	pkg := e.L.GetGlobal("package").(*glua.LTable)
	oldPath := e.L.GetField(pkg, "path").String()
	e.L.SetField(pkg, "path", glua.LString(dir+"/?.lua;"+oldPath))

	err = e.L.DoFile(absPath)

	e.L.SetField(pkg, "path", glua.LString(oldPath))
	return err
}

// --- Timer registry ---

// register adds a timer to the registry and returns its ID.
func (e *Engine) register(t *timer.Timer) int {
	e.nextID++
	e.timers[e.nextID] = t
	e.log.Debug().Int("id", e.nextID).Msg("timer registered")
	return e.nextID
}

// Cancel flips a timer's running flag off and drops it from the
// registry. The pending alarm stays queued; its task keeps the timer
// alive until the scheduler dispatches it as a no-op.
func (e *Engine) Cancel(id int) {
	t, ok := e.timers[id]
	if !ok {
		return
	}
	t.SetInt(timer.KeyRunning, 0)
	delete(e.timers, id)
}

// CancelAll cancels every registered timer.
func (e *Engine) CancelAll() {
	for _, t := range e.timers {
		t.SetInt(timer.KeyRunning, 0)
	}
	e.timers = make(map[int]*timer.Timer)
}

// TimerCount returns the number of live registered timers.
func (e *Engine) TimerCount() int {
	return len(e.timers)
}

// MarkRoots reports every registered timer's handler to a tracing pass,
// unconditionally of arm/fire state.
func (e *Engine) MarkRoots(visit func(timer.Handler)) {
	for _, t := range e.timers {
		t.Mark(visit)
	}
}

// --- API registration ---

func (e *Engine) registerAPIs() {
	e.chimeTable = e.L.NewTable()
	e.L.SetGlobal("chime", e.chimeTable)

	e.registerCoreFuncs()
	e.registerTimerFuncs()
}

// registerCoreFuncs registers chime.* primitives.
func (e *Engine) registerCoreFuncs() {
	// chime.print(text): emit through the host
	e.L.SetField(e.chimeTable, "print", e.L.NewFunction(func(L *glua.LState) int {
		e.host.Print(L.CheckString(1))
		return 0
	}))

	// chime.now(): current clock reading in seconds
	e.L.SetField(e.chimeTable, "now", e.L.NewFunction(func(L *glua.LState) int {
		L.Push(glua.LNumber(e.clock.Now()))
		return 1
	}))
}

// --- Private helpers ---

// expandTilde expands ~ to home directory.
func expandTilde(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
