package collection

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CookieExtension is an attribute the cookie grammar does not name.
type CookieExtension struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Cookie is a parsed cookie with its attributes.
type Cookie struct {
	Name       string
	Value      string
	Path       string
	Domain     string
	Expires    *time.Time
	MaxAge     *int
	Secure     bool
	HTTPOnly   bool
	SameSite   string
	Extensions []CookieExtension
}

// ParseCookie parses a Set-Cookie style string ("name=value; Path=/; ...").
// The name/value pair is taken verbatim, so quoted, JSON or non-ASCII values
// survive. Unknown attributes are preserved as extensions.
func ParseCookie(raw string) (*Cookie, error) {
	pair, attrs, _ := strings.Cut(raw, ";")
	name, value, ok := strings.Cut(pair, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil, fmt.Errorf("parse cookie %q: missing cookie name", raw)
	}
	value = strings.TrimSpace(value)

	// Attributes go through the stdlib parser behind a placeholder pair.
	hc, err := http.ParseSetCookie("x=x;" + attrs)
	if err != nil {
		return nil, fmt.Errorf("parse cookie %q: %w", raw, err)
	}

	c := &Cookie{
		Name:     name,
		Value:    value,
		Path:     hc.Path,
		Domain:   hc.Domain,
		Secure:   hc.Secure,
		HTTPOnly: hc.HttpOnly,
	}
	if !hc.Expires.IsZero() {
		exp := hc.Expires.UTC()
		c.Expires = &exp
	} else if hc.RawExpires != "" {
		if exp, ok := ParseExpires(hc.RawExpires); ok {
			c.Expires = &exp
		}
	}
	if hc.MaxAge != 0 {
		age := hc.MaxAge
		if age < 0 {
			age = 0
		}
		c.MaxAge = &age
	}
	switch hc.SameSite {
	case http.SameSiteLaxMode:
		c.SameSite = "Lax"
	case http.SameSiteStrictMode:
		c.SameSite = "Strict"
	case http.SameSiteNoneMode:
		c.SameSite = "None"
	}
	for _, attr := range hc.Unparsed {
		k, v, _ := strings.Cut(attr, "=")
		c.Extensions = append(c.Extensions, CookieExtension{
			Key:   strings.TrimSpace(k),
			Value: strings.TrimSpace(v),
		})
	}
	return c, nil
}

// String serializes the cookie with its attributes. Expires is always
// rendered as an HTTP-date.
func (c *Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)
	if c.Path != "" {
		b.WriteString("; Path=" + c.Path)
	}
	if c.Domain != "" {
		b.WriteString("; Domain=" + c.Domain)
	}
	if c.Expires != nil {
		b.WriteString("; Expires=" + c.Expires.UTC().Format(http.TimeFormat))
	}
	if c.MaxAge != nil {
		b.WriteString("; Max-Age=" + strconv.Itoa(*c.MaxAge))
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if c.SameSite != "" {
		b.WriteString("; SameSite=" + c.SameSite)
	}
	for _, ext := range c.Extensions {
		b.WriteString("; " + ext.Key)
		if ext.Value != "" {
			b.WriteString("=" + ext.Value)
		}
	}
	return b.String()
}

var expiresLayouts = []string{
	http.TimeFormat,
	time.RFC1123,
	time.RFC1123Z,
	time.RFC3339Nano,
	time.RFC850,
	time.ANSIC,
	"Mon, 02-Jan-2006 15:04:05 MST",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// ParseExpires normalizes an expiry given as a date string, an epoch
// timestamp in milliseconds, or a time.Time.
func ParseExpires(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), !t.IsZero()
	case int64:
		return time.UnixMilli(t).UTC(), true
	case int:
		return time.UnixMilli(int64(t)).UTC(), true
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
		if i := strings.Index(s, " ("); i > 0 {
			s = s[:i]
		}
		for _, layout := range expiresLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
