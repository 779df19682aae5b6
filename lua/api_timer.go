package lua

import (
	"errors"

	glua "github.com/yuin/gopher-lua"

	"github.com/drake/chime/timer"
)

var errBadRow = errors.New("chime.timer.create: each row must be {key, value}")

// keyByName maps script-facing key names onto the keyed surface.
var keyByName = map[string]timer.Key{
	"seconds":      timer.KeySeconds,
	"microseconds": timer.KeyMicroseconds,
	"duration":     timer.KeyDuration,
	"interval":     timer.KeyInterval,
	"repeat":       timer.KeyRepeat,
	"handler":      timer.KeyHandler,
	"running":      timer.KeyRunning,
}

// registerTimerFuncs registers chime.timer.* primitives.
func (e *Engine) registerTimerFuncs() {
	timerTable := e.L.NewTable()
	e.L.SetField(e.chimeTable, "timer", timerTable)

	// chime.timer.after(seconds, callback): one-shot timer, returns ID
	e.L.SetField(timerTable, "after", e.L.NewFunction(func(L *glua.LState) int {
		seconds := float64(L.CheckNumber(1))
		fn := L.CheckFunction(2)

		t, err := timer.NewConfigured(e.clock, e.sched,
			timer.Pair{Key: timer.KeyDuration, Value: seconds},
			timer.Pair{Key: timer.KeyRepeat, Value: int64(0)},
			timer.Pair{Key: timer.KeyHandler, Value: timer.Handler(&luaHandler{engine: e, fn: fn})},
			timer.Pair{Key: timer.KeyRunning, Value: int64(1)},
		)
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}

		L.Push(glua.LNumber(e.register(t)))
		return 1
	}))

	// chime.timer.every(seconds, callback): repeating timer, returns ID
	e.L.SetField(timerTable, "every", e.L.NewFunction(func(L *glua.LState) int {
		seconds := float64(L.CheckNumber(1))
		fn := L.CheckFunction(2)

		t, err := timer.NewConfigured(e.clock, e.sched,
			timer.Pair{Key: timer.KeyDuration, Value: seconds},
			timer.Pair{Key: timer.KeyInterval, Value: seconds},
			timer.Pair{Key: timer.KeyRepeat, Value: int64(-1)},
			timer.Pair{Key: timer.KeyHandler, Value: timer.Handler(&luaHandler{engine: e, fn: fn})},
			timer.Pair{Key: timer.KeyRunning, Value: int64(1)},
		)
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}

		L.Push(glua.LNumber(e.register(t)))
		return 1
	}))

	// chime.timer.create(pairs): bulk keyed construction, returns ID.
	// pairs is an array of {key, value} rows applied in order; putting
	// {"running", 1} last constructs and immediately arms.
	e.L.SetField(timerTable, "create", e.L.NewFunction(func(L *glua.LState) int {
		rows := L.CheckTable(1)

		pairs, err := e.pairsFromTable(L, rows)
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}

		t, err := timer.NewConfigured(e.clock, e.sched, pairs...)
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}

		L.Push(glua.LNumber(e.register(t)))
		return 1
	}))

	// chime.timer.cancel(id): lazily cancel a timer
	e.L.SetField(timerTable, "cancel", e.L.NewFunction(func(L *glua.LState) int {
		e.Cancel(int(L.CheckNumber(1)))
		return 0
	}))

	// chime.timer.cancel_all(): lazily cancel every timer
	e.L.SetField(timerTable, "cancel_all", e.L.NewFunction(func(L *glua.LState) int {
		e.CancelAll()
		return 0
	}))

	// chime.timer.pending(): number of queued wake-ups
	e.L.SetField(timerTable, "pending", e.L.NewFunction(func(L *glua.LState) int {
		L.Push(glua.LNumber(e.sched.Pending()))
		return 1
	}))
}

// pairsFromTable converts an array of {key, value} rows into a
// configuration sequence.
func (e *Engine) pairsFromTable(L *glua.LState, rows *glua.LTable) ([]timer.Pair, error) {
	var pairs []timer.Pair
	var convErr error

	rows.ForEach(func(_, row glua.LValue) {
		if convErr != nil {
			return
		}
		rt, ok := row.(*glua.LTable)
		if !ok {
			convErr = errBadRow
			return
		}
		name := rt.RawGetInt(1).String()
		key, ok := keyByName[name]
		if !ok {
			// Unknown names still travel through the keyed surface so
			// the write path decides whether to error or ignore.
			key = timer.Key(-1)
		}

		switch v := rt.RawGetInt(2).(type) {
		case glua.LNumber:
			pairs = append(pairs, timer.Pair{Key: key, Value: float64(v)})
		case *glua.LFunction:
			pairs = append(pairs, timer.Pair{Key: key, Value: timer.Handler(&luaHandler{engine: e, fn: v})})
		case glua.LBool:
			n := int64(0)
			if v == glua.LTrue {
				n = 1
			}
			pairs = append(pairs, timer.Pair{Key: key, Value: n})
		default:
			convErr = errBadRow
		}
	})

	if convErr != nil {
		return nil, convErr
	}
	return pairs, nil
}
