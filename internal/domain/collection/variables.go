// Package collection models the Postman-style entities a script operates on:
// layered variable scopes, requests, responses and cookies.
//
// The types here are plain data with small helpers. They carry no runtime
// state and are safe to copy across the engine and sandbox boundary.
package collection

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Variable is one key/value member of a VariableList.
type Variable struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// VariableList is an insertion-ordered set of variables indexed by key.
// The zero value is ready to use. Not safe for concurrent mutation.
type VariableList struct {
	members []Variable
	index   map[string]int
}

// NewVariableList creates a list seeded with the given members in order.
// A repeated key overwrites the earlier value in place.
func NewVariableList(members ...Variable) *VariableList {
	l := &VariableList{}
	for _, m := range members {
		l.Upsert(m.Key, m.Value)
	}
	return l
}

// One returns the member stored under key.
func (l *VariableList) One(key string) (Variable, bool) {
	if l == nil || l.index == nil {
		return Variable{}, false
	}
	i, ok := l.index[key]
	if !ok {
		return Variable{}, false
	}
	return l.members[i], true
}

// Upsert sets key to value, keeping the original position when key exists.
func (l *VariableList) Upsert(key string, value any) {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if i, ok := l.index[key]; ok {
		l.members[i].Value = value
		return
	}
	l.index[key] = len(l.members)
	l.members = append(l.members, Variable{Key: key, Value: value})
}

// Remove deletes key and reports whether it was present.
func (l *VariableList) Remove(key string) bool {
	if l == nil || l.index == nil {
		return false
	}
	i, ok := l.index[key]
	if !ok {
		return false
	}
	l.members = append(l.members[:i], l.members[i+1:]...)
	delete(l.index, key)
	for j := i; j < len(l.members); j++ {
		l.index[l.members[j].Key] = j
	}
	return true
}

// Clear removes every member.
func (l *VariableList) Clear() {
	l.members = nil
	l.index = nil
}

// Len returns the member count.
func (l *VariableList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.members)
}

// Members returns a copy of the members in insertion order.
func (l *VariableList) Members() []Variable {
	if l == nil {
		return nil
	}
	out := make([]Variable, len(l.members))
	copy(out, l.members)
	return out
}

// ToObject flattens the list into a map.
func (l *VariableList) ToObject() map[string]any {
	out := make(map[string]any, l.Len())
	if l == nil {
		return out
	}
	for _, m := range l.members {
		out[m.Key] = m.Value
	}
	return out
}

var placeholder = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Stringify renders a variable value the way it is substituted into
// templates. Nil renders as the empty string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return FormatNumber(t)
	case float32:
		return FormatNumber(float64(t))
	default:
		if s, ok := v.(interface{ String() string }); ok {
			return s.String()
		}
		return "[object Object]"
	}
}

// FormatNumber prints f the way a script runtime prints numbers: integral
// values without a fraction, everything else in shortest form.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if abs := math.Abs(f); abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		// Go pads the exponent to two digits; scripts print 1e-7, not 1e-07.
		s := strconv.FormatFloat(f, 'g', -1, 64)
		mantissa, exp, ok := strings.Cut(s, "e")
		if !ok || len(exp) < 2 {
			return s
		}
		return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
