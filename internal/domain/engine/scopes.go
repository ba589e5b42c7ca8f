package engine

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptengine/internal/domain/collection"
)

// Scopes holds the four variable tiers of one execution. Variables falls
// back to Environment, CollectionVariables and Globals, in that order.
type Scopes struct {
	Globals             *collection.Scope
	CollectionVariables *collection.Scope
	Environment         *collection.Scope
	Variables           *collection.Scope
}

// Count is the total number of members across all tiers.
func (s *Scopes) Count() int {
	return s.Globals.Len() + s.CollectionVariables.Len() + s.Environment.Len() + s.Variables.Len()
}

// BuildScopes creates the tiers from the wire maps. Missing maps become empty
// tiers. String values have escaped quotes (\") unescaped.
func BuildScopes(pc *ScriptingContext, logger *zap.Logger) (*Scopes, error) {
	if pc == nil {
		return nil, newError(KindScopeBuild, "scripting context is missing", nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	globals := collection.NewScope("globals", fillScope("globals", pc.Globals, logger))
	coll := collection.NewScope("collectionVariables", fillScope("collectionVariables", pc.CollectionVariables, logger))
	env := collection.NewScope("environment", fillScope("environment", pc.Environment, logger))
	local := collection.NewScope("variables", fillScope("variables", pc.Variables, logger), env, coll, globals)

	return &Scopes{
		Globals:             globals,
		CollectionVariables: coll,
		Environment:         env,
		Variables:           local,
	}, nil
}

// fillScope copies a wire map into a list. Keys are sorted so the member
// order is stable across runs.
func fillScope(name string, values map[string]any, logger *zap.Logger) *collection.VariableList {
	list := collection.NewVariableList()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := values[k]
		if s, ok := v.(string); ok && s != "" {
			v = strings.ReplaceAll(s, `\"`, `"`)
		}
		logger.Debug("Set variable", zap.String("scope", name), zap.String("key", k), zap.Any("value", v))
		list.Upsert(k, v)
	}
	return list
}
