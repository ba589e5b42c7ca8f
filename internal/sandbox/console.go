package sandbox

import (
	"time"

	"github.com/dop251/goja"
)

var consoleLevels = []string{LevelLog, LevelInfo, LevelWarn, LevelError, LevelDebug, LevelClear}

// bindConsole installs a console whose methods emit console events with the
// level followed by every argument in its script-side shape.
func (x *execution) bindConsole() error {
	console := x.vm.NewObject()
	for _, level := range consoleLevels {
		if err := console.Set(level, x.makeConsoleFunc(level)); err != nil {
			return err
		}
	}
	return x.vm.Set("console", console)
}

func (x *execution) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !x.ctx.config.EnableConsole {
			return goja.Undefined()
		}
		args := make([]any, 0, len(call.Arguments)+1)
		args = append(args, level)
		for _, arg := range call.Arguments {
			args = append(args, x.exportArg(arg))
		}
		x.ctx.emit(EventConsole, args...)
		return goja.Undefined()
	}
}

// exportArg tags an argument by its runtime shape.
func (x *execution) exportArg(v goja.Value) any {
	tagged, err := x.fns.consoleArg(goja.Undefined(), v)
	if err != nil {
		return v.String()
	}
	obj, ok := tagged.Export().(map[string]any)
	if !ok {
		return nil
	}
	payload := obj["v"]
	switch obj["t"] {
	case "set":
		items, _ := fromTree(payload).([]any)
		return SetValue(items)
	case "map":
		pairs, _ := payload.([]any)
		return MapValue(entriesFromPairs(pairs))
	case "obj":
		return fromTree(payload)
	case "date":
		return time.UnixMilli(toInt64(payload))
	default:
		return payload
	}
}

// fromTree decodes the prelude's __tree encoding. Objects become ObjectValue
// so their key order is kept.
func fromTree(v any) any {
	node, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if items, ok := node["a"].([]any); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = fromTree(item)
		}
		return out
	}
	if pairs, ok := node["o"].([]any); ok {
		return ObjectValue(entriesFromPairs(pairs))
	}
	return node["p"]
}

func entriesFromPairs(pairs []any) []MapEntry {
	out := make([]MapEntry, 0, len(pairs))
	for _, p := range pairs {
		kv, ok := p.([]any)
		if !ok || len(kv) != 2 {
			continue
		}
		key, _ := kv[0].(string)
		out = append(out, MapEntry{Key: key, Value: fromTree(kv[1])})
	}
	return out
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}
