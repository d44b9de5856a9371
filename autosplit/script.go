package autosplit

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

// hooks are the optional global functions a script may define, in the
// order they are evaluated on each pass.
var hooks = []string{"update", "start", "split", "isLoading", "reset", "gameTime"}

// jsScript is an auto-splitter written in JavaScript. State kept in script
// globals survives between passes.
type jsScript struct {
	path  string
	vm    *goja.Runtime
	funcs map[string]goja.Callable
}

// LoadScript compiles and initialises the JavaScript auto-splitter at path.
func LoadScript(path string) (Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewScript(path, string(src))
}

// NewScript compiles src as an auto-splitter. name is used in stack traces
// and logs.
func NewScript(name, src string) (Script, error) {
	vm := goja.New()
	logger := log.With().Str("script", name).Logger()
	if err := vm.Set("print", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		logger.Info().Msg(strings.Join(parts, " "))
		return goja.Undefined()
	}); err != nil {
		return nil, err
	}

	if _, err := vm.RunScript(name, src); err != nil {
		return nil, fmt.Errorf("evaluate script: %w", err)
	}

	s := &jsScript{path: name, vm: vm, funcs: make(map[string]goja.Callable)}
	for _, hook := range hooks {
		v := vm.Get(hook)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			continue
		}
		fn, ok := goja.AssertFunction(v)
		if !ok {
			return nil, fmt.Errorf("%s is not a function", hook)
		}
		s.funcs[hook] = fn
	}
	return s, nil
}

// Poll evaluates the hooks once. A cancelled ctx interrupts the script.
func (s *jsScript) Poll(ctx context.Context) (Events, error) {
	stop := context.AfterFunc(ctx, func() {
		s.vm.Interrupt(ctx.Err())
	})
	defer func() {
		if !stop() {
			s.vm.ClearInterrupt()
		}
	}()

	var ev Events
	for _, hook := range hooks {
		fn, ok := s.funcs[hook]
		if !ok {
			continue
		}
		v, err := fn(goja.Undefined())
		if err != nil {
			return Events{}, fmt.Errorf("%s: %w", hook, err)
		}
		switch hook {
		case "start":
			ev.Start = v.ToBoolean()
		case "split":
			ev.Split = v.ToBoolean()
		case "reset":
			ev.Reset = v.ToBoolean()
		case "isLoading":
			if !goja.IsUndefined(v) && !goja.IsNull(v) {
				loading := v.ToBoolean()
				ev.Loading = &loading
			}
		case "gameTime":
			if goja.IsUndefined(v) || goja.IsNull(v) {
				continue
			}
			ms := v.ToFloat()
			if math.IsNaN(ms) || ms < 0 {
				return Events{}, fmt.Errorf("gameTime returned %v", v)
			}
			d := time.Duration(ms * float64(time.Millisecond))
			ev.GameTime = &d
		}
	}
	return ev, nil
}

func (s *jsScript) Close() error {
	s.vm.Interrupt("closed")
	return nil
}
