package gdsapi

import (
	"sort"
	"strconv"
	"strings"
)

// Cache-Control directive names.
const (
	DirectivePublic          = "public"
	DirectivePrivate         = "private"
	DirectiveNoCache         = "no-cache"
	DirectiveNoStore         = "no-store"
	DirectiveMustRevalidate  = "must-revalidate"
	DirectiveProxyRevalidate = "proxy-revalidate"
	DirectiveMaxAge          = "max-age"
	DirectiveSharedMaxAge    = "s-maxage"
	DirectiveReverseMaxAge   = "r-maxage"
)

// directive is either a flag (value empty, flag true) or a name=value pair.
type directive struct {
	value string
	flag  bool
}

// CacheControl is a parsed Cache-Control header. Names are case-insensitive
// and stored lowercased.
type CacheControl struct {
	directives map[string]directive
}

// ParseCacheControl parses a Cache-Control header value. It never fails:
// segments that do not look like name=value become flag directives.
func ParseCacheControl(header string) CacheControl {
	cc := CacheControl{directives: make(map[string]directive)}

	for _, segment := range strings.Split(header, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		name, value, found := strings.Cut(segment, "=")
		if !found {
			cc.SetFlag(segment)

			continue
		}

		name = strings.TrimSpace(name)
		if name == "" {
			cc.SetFlag(segment)

			continue
		}

		cc.Set(name, strings.TrimSpace(value))
	}

	return cc
}

// Set stores a value directive.
func (c *CacheControl) Set(name, value string) {
	c.ensure()
	c.directives[strings.ToLower(name)] = directive{value: value}
}

// SetFlag stores a flag directive.
func (c *CacheControl) SetFlag(name string) {
	c.ensure()
	c.directives[strings.ToLower(name)] = directive{flag: true}
}

// Delete removes a directive.
func (c *CacheControl) Delete(name string) {
	delete(c.directives, strings.ToLower(name))
}

// Clear removes every directive.
func (c *CacheControl) Clear() {
	c.directives = make(map[string]directive)
}

// Len returns the number of directives.
func (c CacheControl) Len() int {
	return len(c.directives)
}

// Has reports whether the directive is present, flag or value.
func (c CacheControl) Has(name string) bool {
	_, ok := c.directives[strings.ToLower(name)]

	return ok
}

// Value returns the value of a value directive. Flags report ("", true).
func (c CacheControl) Value(name string) (string, bool) {
	d, ok := c.directives[strings.ToLower(name)]
	if !ok {
		return "", false
	}

	return d.value, true
}

func (c CacheControl) Public() bool          { return c.Has(DirectivePublic) }
func (c CacheControl) Private() bool         { return c.Has(DirectivePrivate) }
func (c CacheControl) NoCache() bool         { return c.Has(DirectiveNoCache) }
func (c CacheControl) NoStore() bool         { return c.Has(DirectiveNoStore) }
func (c CacheControl) MustRevalidate() bool  { return c.Has(DirectiveMustRevalidate) }
func (c CacheControl) ProxyRevalidate() bool { return c.Has(DirectiveProxyRevalidate) }

// MaxAge returns max-age in seconds.
func (c CacheControl) MaxAge() (int, bool) {
	return c.intValue(DirectiveMaxAge)
}

// SharedMaxAge returns s-maxage in seconds.
func (c CacheControl) SharedMaxAge() (int, bool) {
	return c.intValue(DirectiveSharedMaxAge)
}

// ReverseMaxAge returns r-maxage in seconds.
func (c CacheControl) ReverseMaxAge() (int, bool) {
	return c.intValue(DirectiveReverseMaxAge)
}

func (c CacheControl) intValue(name string) (int, bool) {
	d, ok := c.directives[name]
	if !ok || d.flag {
		return 0, false
	}

	n, err := strconv.Atoi(d.value)
	if err != nil {
		return 0, false
	}

	return n, true
}

// Directives returns the directive names in canonical order: flags sorted,
// then value directives sorted.
func (c CacheControl) Directives() []string {
	flags := make([]string, 0, len(c.directives))
	values := make([]string, 0, len(c.directives))

	for name, d := range c.directives {
		if d.flag {
			flags = append(flags, name)
		} else {
			values = append(values, name)
		}
	}

	sort.Strings(flags)
	sort.Strings(values)

	return append(flags, values...)
}

// IsFlag reports whether name is present without a value.
func (c CacheControl) IsFlag(name string) bool {
	return c.directives[strings.ToLower(name)].flag
}

// String renders the canonical form: flags sorted, then values sorted.
func (c CacheControl) String() string {
	names := c.Directives()

	parts := make([]string, len(names))
	for i, name := range names {
		if d := c.directives[name]; d.flag {
			parts[i] = name
		} else {
			parts[i] = name + "=" + d.value
		}
	}

	return strings.Join(parts, ", ")
}

// Equal reports whether both sets hold the same directives.
func (c CacheControl) Equal(other CacheControl) bool {
	if len(c.directives) != len(other.directives) {
		return false
	}

	for name, d := range c.directives {
		if o, ok := other.directives[name]; !ok || o != d {
			return false
		}
	}

	return true
}

func (c *CacheControl) ensure() {
	if c.directives == nil {
		c.directives = make(map[string]directive)
	}
}
