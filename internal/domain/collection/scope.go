package collection

// Scope is one variable tier. Lookups consult the scope's own values first
// and then each parent layer in order; writes only touch the own values.
type Scope struct {
	name   string
	values *VariableList
	layers []*VariableList
}

// NewScope creates a scope holding values, falling back to the own values of
// the given parents in order. Parents are referenced, not copied, so writes to
// a parent are visible through every scope layered on it.
func NewScope(name string, values *VariableList, parents ...*Scope) *Scope {
	if values == nil {
		values = NewVariableList()
	}
	s := &Scope{name: name, values: values}
	for _, p := range parents {
		if p != nil {
			s.layers = append(s.layers, p.values)
		}
	}
	return s
}

// Name returns the tier name.
func (s *Scope) Name() string { return s.name }

// Values exposes the scope's own members.
func (s *Scope) Values() *VariableList { return s.values }

// Get resolves key against the own values then the parent layers.
func (s *Scope) Get(key string) (any, bool) {
	if v, ok := s.values.One(key); ok {
		return v.Value, true
	}
	for _, layer := range s.layers {
		if v, ok := layer.One(key); ok {
			return v.Value, true
		}
	}
	return nil, false
}

// Has reports whether key resolves anywhere in the chain.
func (s *Scope) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set writes key into the own values.
func (s *Scope) Set(key string, value any) { s.values.Upsert(key, value) }

// Unset removes key from the own values only.
func (s *Scope) Unset(key string) { s.values.Remove(key) }

// Clear empties the own values.
func (s *Scope) Clear() { s.values.Clear() }

// Len counts the own values.
func (s *Scope) Len() int { return s.values.Len() }

// ToObject flattens the resolved view: parents first, own values last.
func (s *Scope) ToObject() map[string]any {
	out := make(map[string]any)
	for i := len(s.layers) - 1; i >= 0; i-- {
		for k, v := range s.layers[i].ToObject() {
			out[k] = v
		}
	}
	for k, v := range s.values.ToObject() {
		out[k] = v
	}
	return out
}

// ReplaceIn substitutes every {{name}} placeholder that resolves in the
// scope chain. Unresolved placeholders are left as written.
func (s *Scope) ReplaceIn(template string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		key := m[2 : len(m)-2]
		if v, ok := s.Get(key); ok {
			return Stringify(v)
		}
		return m
	})
}
