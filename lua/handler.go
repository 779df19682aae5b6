package lua

import (
	glua "github.com/yuin/gopher-lua"
)

// luaHandler wraps a Lua function as a timer handler. The call is
// protected: a failing callback is reported to the host and the timer
// carries on.
type luaHandler struct {
	engine *Engine
	fn     *glua.LFunction
}

func (h *luaHandler) Invoke() {
	L := h.engine.L
	if L == nil {
		return // Engine closed; stale alarm from a previous state
	}
	L.Push(h.fn)
	if err := L.PCall(0, 0, nil); err != nil {
		h.engine.host.OnError("timer handler: " + err.Error())
	}
}
