package scripting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/wudi/pdfcolor/device"
	"github.com/wudi/pdfcolor/observability"
)

type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	vm := goja.New()
	return &GojaEngine{vm: vm}
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	if err != nil {
		return nil, interruptCause(err)
	}
	return val.Export(), nil
}

// interruptCause unwraps an interrupt into the value it was raised with.
func interruptCause(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause := interrupted.Unwrap(); cause != nil {
			return cause
		}
		return context.Canceled
	}
	return err
}

func (e *GojaEngine) RegisterHost(host Host) error {
	hostObj := e.vm.NewObject()
	err := hostObj.Set("log", func(call goja.FunctionCall) goja.Value {
		msg := ""
		if len(call.Arguments) > 0 {
			msg = call.Arguments[0].String()
		}
		host.Log(msg)
		return goja.Undefined()
	})
	if err != nil {
		return err
	}
	return e.vm.Set("host", hostObj)
}

// logHost forwards script messages to a logger.
type logHost struct {
	log observability.Logger
}

func (h logHost) Log(message string) {
	h.log.Info("color script", observability.String("message", message))
}

var errTimeout = errors.New("color script timed out")

// ColorReplacer calls a script function replace(color) for every color
// offered to it. The argument has the fields components, space, spot and
// deviceComponents. Returning null or undefined leaves the color alone;
// returning an array of numbers in [0,1], one per device component,
// replaces it.
type ColorReplacer struct {
	mu      sync.Mutex
	engine  *GojaEngine
	replace goja.Callable
	// Timeout bounds a single call; zero means no limit.
	Timeout time.Duration
}

// NewColorReplacer runs script and binds its replace function. Messages
// passed to host.log go to log.
func NewColorReplacer(ctx context.Context, script string, log observability.Logger) (*ColorReplacer, error) {
	if log == nil {
		log = observability.NopLogger{}
	}
	e := NewEngine()
	if err := e.RegisterHost(logHost{log: log}); err != nil {
		return nil, err
	}
	if _, err := e.Execute(ctx, script); err != nil {
		return nil, fmt.Errorf("load color script: %w", err)
	}
	fn, ok := goja.AssertFunction(e.vm.Get("replace"))
	if !ok {
		return nil, errors.New("color script does not define replace(color)")
	}
	return &ColorReplacer{engine: e, replace: fn}, nil
}

func (r *ColorReplacer) ReplaceColor(req device.ReplaceRequest, dev device.Device) (device.Color, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := dev.ColorInfo().NumComponents
	vm := r.engine.vm
	arg := vm.ToValue(map[string]interface{}{
		"components":       req.Client,
		"space":            req.SpaceName,
		"spot":             req.SpotName,
		"deviceComponents": n,
	})
	if r.Timeout > 0 {
		defer vm.ClearInterrupt()
		timer := time.AfterFunc(r.Timeout, func() { vm.Interrupt(errTimeout) })
		defer timer.Stop()
	}
	res, err := r.replace(goja.Undefined(), arg)
	if err != nil {
		return device.Color{}, false, fmt.Errorf("replace(%s): %w", req.SpaceName, interruptCause(err))
	}
	if goja.IsUndefined(res) || goja.IsNull(res) {
		return device.Color{}, false, nil
	}
	var values []float64
	if err := vm.ExportTo(res, &values); err != nil {
		return device.Color{}, false, fmt.Errorf("replace(%s) result: %w", req.SpaceName, err)
	}
	if len(values) != n {
		return device.Color{}, false, fmt.Errorf("replace(%s) returned %d components, device has %d", req.SpaceName, len(values), n)
	}
	prof, err := dev.OutputProfile(dev.GraphicsTypeTag())
	if err != nil {
		return device.Color{}, false, err
	}
	comps := make([]uint16, n)
	for i, v := range values {
		comps[i] = uint16(math.Round(math.Max(0, math.Min(1, v)) * 65535))
	}
	return device.Remap(dev, prof, comps), true, nil
}
