package collection

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestVariableListOrdering(t *testing.T) {
	l := NewVariableList(
		Variable{Key: "a", Value: "1"},
		Variable{Key: "b", Value: "2"},
		Variable{Key: "a", Value: "3"},
	)

	require.Equal(t, 2, l.Len())
	assert.Equal(t, []Variable{{Key: "a", Value: "3"}, {Key: "b", Value: "2"}}, l.Members())

	assert.True(t, l.Remove("a"))
	assert.False(t, l.Remove("a"))
	v, ok := l.One("b")
	require.True(t, ok)
	assert.Equal(t, "2", v.Value)

	l.Upsert("c", 3)
	assert.Equal(t, map[string]any{"b": "2", "c": 3}, l.ToObject())

	l.Clear()
	assert.Equal(t, 0, l.Len())
	_, ok = l.One("b")
	assert.False(t, ok)
}

func TestScopeFallback(t *testing.T) {
	globals := NewScope("globals", NewVariableList(Variable{Key: "x", Value: "g"}, Variable{Key: "only", Value: "global"}))
	coll := NewScope("collectionVariables", NewVariableList(Variable{Key: "x", Value: "c"}))
	env := NewScope("environment", NewVariableList())
	local := NewScope("variables", nil, env, coll, globals)

	v, ok := local.Get("x")
	require.True(t, ok)
	assert.Equal(t, "c", v)

	env.Set("x", "e")
	v, _ = local.Get("x")
	assert.Equal(t, "e", v, "writes to a parent are visible through the chain")

	local.Set("x", "l")
	v, _ = local.Get("x")
	assert.Equal(t, "l", v)

	local.Unset("x")
	v, _ = local.Get("x")
	assert.Equal(t, "e", v, "unset only touches own values")

	assert.True(t, local.Has("only"))
	assert.False(t, local.Has("missing"))
	assert.Equal(t, 0, local.Len())
	assert.Equal(t, map[string]any{"x": "e", "only": "global"}, local.ToObject())
}

func TestScopeFallbackProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "key")
		tiers := []string{"variables", "environment", "collectionVariables", "globals"}
		present := make([]bool, len(tiers))
		lists := make([]*VariableList, len(tiers))
		for i, name := range tiers {
			lists[i] = NewVariableList()
			if rapid.Bool().Draw(t, name) {
				lists[i].Upsert(key, name)
				present[i] = true
			}
		}
		globals := NewScope(tiers[3], lists[3])
		coll := NewScope(tiers[2], lists[2])
		env := NewScope(tiers[1], lists[1])
		local := NewScope(tiers[0], lists[0], env, coll, globals)

		want := ""
		for i, ok := range present {
			if ok {
				want = tiers[i]
				break
			}
		}
		got, ok := local.Get(key)
		if want == "" {
			if ok {
				t.Fatalf("expected miss, got %v", got)
			}
			return
		}
		if !ok || got != want {
			t.Fatalf("expected %q, got %v (found=%v)", want, got, ok)
		}
	})
}

func TestReplaceIn(t *testing.T) {
	env := NewScope("environment", NewVariableList(Variable{Key: "host", Value: "example.com"}, Variable{Key: "port", Value: float64(8080)}))
	local := NewScope("variables", nil, env)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single", "{{host}}", "example.com"},
		{"multiple", "http://{{host}}:{{port}}/x", "http://example.com:8080/x"},
		{"unresolved kept", "{{nope}}/{{host}}", "{{nope}}/example.com"},
		{"no placeholders", "plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, local.ReplaceIn(tt.in))
		})
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "42", Stringify(float64(42)))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, "7", Stringify(int64(7)))
	assert.Equal(t, "NaN", FormatNumber(nan()))
	assert.Equal(t, "1e+21", FormatNumber(1e21))
}

func TestFormatNumberExponent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1e-7, "1e-7"},
		{-1.5e-7, "-1.5e-7"},
		{1.5e-10, "1.5e-10"},
		{1e21, "1e+21"},
		{1.25e300, "1.25e+300"},
		{5e-324, "5e-324"},
		{0.000001, "0.000001"},
		{123456789, "123456789"},
		{0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.in))
		})
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}

func TestURL(t *testing.T) {
	port := "8443"
	u := URL{
		Protocol: "https",
		Host:     []string{"api", "example", "com"},
		Port:     &port,
		Path:     []string{"v1", "users"},
		Query:    []QueryParam{{Key: "a", Value: "1"}, {Key: "b", Value: "x y"}},
	}
	assert.Equal(t, "https://api.example.com:8443/v1/users?a=1&b=x y", u.String())

	parsed := ParseURL(u.String())
	assert.Equal(t, u, parsed)

	noPort := ParseURL("http://localhost/health")
	assert.Nil(t, noPort.Port)
	assert.Equal(t, []string{"localhost"}, noPort.Host)
	assert.Equal(t, []string{"health"}, noPort.Path)
}

func TestURLUnmarshalString(t *testing.T) {
	var r Request
	require.NoError(t, json.Unmarshal([]byte(`{"method":"GET","url":"http://h.io/p?q=1"}`), &r))
	assert.Equal(t, "http", r.URL.Protocol)
	assert.Equal(t, []string{"h", "io"}, r.URL.Host)
	assert.Equal(t, []QueryParam{{Key: "q", Value: "1"}}, r.URL.Query)

	require.NoError(t, json.Unmarshal([]byte(`{"url":{"host":["a"],"port":null,"path":[],"query":[]}}`), &r))
	assert.Equal(t, []string{"a"}, r.URL.Host)
	assert.Nil(t, r.URL.Port)
}

func TestHeaderValue(t *testing.T) {
	headers := []Header{{Key: "Content-Type", Value: "application/json"}}
	v, ok := HeaderValue(headers, "content-type")
	assert.True(t, ok)
	assert.Equal(t, "application/json", v)
	_, ok = HeaderValue(headers, "accept")
	assert.False(t, ok)
}

func TestParseCookie(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, c *Cookie)
	}{
		{
			name: "attributes",
			raw:  "sid=abc; Path=/; Domain=example.com; Secure; HttpOnly; SameSite=Lax; Priority=High",
			check: func(t *testing.T, c *Cookie) {
				assert.Equal(t, "sid", c.Name)
				assert.Equal(t, "abc", c.Value)
				assert.Equal(t, "/", c.Path)
				assert.Equal(t, "example.com", c.Domain)
				assert.True(t, c.Secure)
				assert.True(t, c.HTTPOnly)
				assert.Equal(t, "Lax", c.SameSite)
				assert.Equal(t, []CookieExtension{{Key: "Priority", Value: "High"}}, c.Extensions)
			},
		},
		{
			name: "expires",
			raw:  "a=b; Expires=Wed, 21 Oct 2015 07:28:00 GMT",
			check: func(t *testing.T, c *Cookie) {
				require.NotNil(t, c.Expires)
				assert.True(t, time.Date(2015, 10, 21, 7, 28, 0, 0, time.UTC).Equal(*c.Expires))
				assert.Equal(t, "a=b; Expires=Wed, 21 Oct 2015 07:28:00 GMT", c.String())
			},
		},
		{
			name: "max age",
			raw:  "a=b; Max-Age=60",
			check: func(t *testing.T, c *Cookie) {
				require.NotNil(t, c.MaxAge)
				assert.Equal(t, 60, *c.MaxAge)
			},
		},
		{
			name: "quoted value",
			raw:  `token="abc"; HttpOnly`,
			check: func(t *testing.T, c *Cookie) {
				assert.Equal(t, `"abc"`, c.Value)
				assert.True(t, c.HTTPOnly)
			},
		},
		{name: "blank", raw: "", wantErr: true},
		{name: "no equals", raw: "garbage", wantErr: true},
		{name: "no name", raw: "=value; Path=/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCookie(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestParseCookieLenientValues(t *testing.T) {
	tests := []struct {
		raw   string
		name  string
		value string
	}{
		{`data={"a":1}; Path=/`, "data", `{"a":1}`},
		{"name=José", "name", "José"},
		{`token=a\b`, "token", `a\b`},
		{"empty=; Secure", "empty", ""},
		{"b64=YWJj==; Path=/", "b64", "YWJj=="},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, err := ParseCookie(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.name, c.Name)
			assert.Equal(t, tt.value, c.Value)
			assert.Equal(t, tt.raw, c.String())
		})
	}
}

func TestCookieString(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	c := &Cookie{Name: "n", Value: "v", Path: "/", Expires: &exp, Secure: true}
	assert.Equal(t, "n=v; Path=/; Expires=Wed, 02 Jan 2030 03:04:05 GMT; Secure", c.String())
}

func TestParseExpires(t *testing.T) {
	want := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	inputs := []any{
		want.UnixMilli(),
		float64(want.UnixMilli()),
		"Wed, 02 Jan 2030 03:04:05 GMT",
		"2030-01-02T03:04:05Z",
		"Wed Jan 02 2030 03:04:05 GMT+0000 (Coordinated Universal Time)",
		want,
	}
	for _, in := range inputs {
		got, ok := ParseExpires(in)
		require.True(t, ok, "input %v", in)
		assert.True(t, want.Equal(got), "input %v gave %v", in, got)
	}
	_, ok := ParseExpires("not a date")
	assert.False(t, ok)
	_, ok = ParseExpires(nil)
	assert.False(t, ok)
}
