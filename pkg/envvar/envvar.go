// Package envvar applies environment variable overrides onto configuration fields.
// Every helper ignores an empty variable name and an unset or empty value.
package envvar

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// String overrides dst with the value of name.
func String(name string, dst *string) {
	if v := lookup(name); v != "" {
		*dst = v
	}
}

// List overrides dst with the comma-separated items of name. Blank items are dropped.
func List(name string, dst *[]string) {
	v := lookup(name)
	if v == "" {
		return
	}
	var items []string
	for item := range strings.SplitSeq(v, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	*dst = items
}

// Int overrides dst with the integer value of name.
func Int(name string, dst *int) error {
	return parse(name, dst, strconv.Atoi)
}

// Int64 overrides dst with the 64-bit integer value of name.
func Int64(name string, dst *int64) error {
	return parse(name, dst, func(v string) (int64, error) {
		return strconv.ParseInt(v, 10, 64)
	})
}

// Bool overrides dst with the boolean value of name.
func Bool(name string, dst *bool) error {
	return parse(name, dst, strconv.ParseBool)
}

// Duration overrides dst with name after checking it parses as a time.Duration.
// The raw text is kept so TOML round-trips stay readable.
func Duration(name string, dst *string) error {
	return parse(name, dst, func(v string) (string, error) {
		_, err := time.ParseDuration(v)
		return v, err
	})
}

func parse[T any](name string, dst *T, fn func(string) (T, error)) error {
	v := lookup(name)
	if v == "" {
		return nil
	}
	parsed, err := fn(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = parsed
	return nil
}

func lookup(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
