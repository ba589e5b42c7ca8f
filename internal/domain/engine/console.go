package engine

import (
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/scriptengine/internal/domain/collection"
	"github.com/GriffinCanCode/scriptengine/internal/sandbox"
)

// consoleJSON mirrors script JSON.stringify: no HTML escaping. Keys of a raw
// Go map are sorted since it carries no order; sandbox objects arrive as
// ObjectValue and keep theirs.
var consoleJSON = sonic.Config{SortMapKeys: true}.Froze()

// renderArg prepares one console argument for joining. Sets become a JSON
// array, maps and plain objects a JSON object in key order, arrays their
// JSON text. Dates and primitives pass through unchanged.
func renderArg(arg any) any {
	switch v := arg.(type) {
	case time.Time:
		return v
	case sandbox.SetValue, sandbox.MapValue, sandbox.ObjectValue, map[string]any, []any:
		var b strings.Builder
		writeJSON(&b, v)
		return b.String()
	default:
		return v
	}
}

// joinArgs renders each argument as the script runtime would and joins them
// with single spaces. Nil renders as an empty string.
func joinArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = displayString(renderArg(a))
	}
	return strings.Join(parts, " ")
}

func displayString(v any) string {
	if t, ok := v.(time.Time); ok {
		return dateString(t)
	}
	return collection.Stringify(v)
}

// dateString formats like Date.prototype.toString.
func dateString(t time.Time) string {
	name, _ := t.Zone()
	return t.Format("Mon Jan 02 2006 15:04:05 GMT-0700") + " (" + zoneLongName(name) + ")"
}

func zoneLongName(abbrev string) string {
	if abbrev == "UTC" || abbrev == "GMT" {
		return "Coordinated Universal Time"
	}
	return abbrev
}

func toJSON(v any) string {
	s, err := consoleJSON.MarshalToString(v)
	if err != nil {
		return collection.Stringify(v)
	}
	return s
}

// writeJSON renders v like JSON.stringify, keeping the entry order of sets,
// maps and objects at every depth.
func writeJSON(b *strings.Builder, v any) {
	switch t := v.(type) {
	case sandbox.SetValue:
		writeArray(b, t)
	case []any:
		writeArray(b, t)
	case sandbox.MapValue:
		writeEntries(b, t)
	case sandbox.ObjectValue:
		writeEntries(b, t)
	default:
		b.WriteString(toJSON(t))
	}
}

func writeArray(b *strings.Builder, items []any) {
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		writeJSON(b, item)
	}
	b.WriteByte(']')
}

// writeEntries renders entries as a JSON object in insertion order. A
// repeated key keeps its first position and last value.
func writeEntries(b *strings.Builder, entries []sandbox.MapEntry) {
	order := make([]string, 0, len(entries))
	values := make(map[string]any, len(entries))
	for _, e := range entries {
		if _, seen := values[e.Key]; !seen {
			order = append(order, e.Key)
		}
		values[e.Key] = e.Value
	}

	b.WriteByte('{')
	for i, k := range order {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(toJSON(k))
		b.WriteByte(':')
		writeJSON(b, values[k])
	}
	b.WriteByte('}')
}
