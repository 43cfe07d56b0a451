package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vshulcz/Golastic/internal/misc"
)

// FromEnvOrFlag returns the environment value when present, otherwise falls back to a CLI flag then default.
func FromEnvOrFlag(envKey, flagVal, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	return def
}

// FromEnvOrFlagBool merges boolean values from ENV and flags (defaulting to def).
func FromEnvOrFlagBool(envKey string, flagVal, def bool) bool {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		return misc.GetBool(envKey, def)
	}
	return flagVal || def
}

// FromEnvOrFlagInt resolves integer values; anything below min is ignored.
func FromEnvOrFlagInt(envKey string, flagVal, def, min int) int {
	if n := misc.GetInt(envKey, min-1); n >= min {
		return n
	}
	if flagVal != 0 && flagVal >= min {
		return flagVal
	}
	return def
}

// FromEnvOrFlagList splits a comma-separated list taken from ENV, falling back to the flag.
// A blank-only ENV value yields nil rather than the flag.
func FromEnvOrFlagList(envKey, flagVal string) []string {
	if v := misc.GetList(envKey, nil); len(v) > 0 {
		return v
	}
	if strings.TrimSpace(os.Getenv(envKey)) != "" {
		return nil
	}
	return misc.SplitList(flagVal)
}

// FromEnvOrFlagDuration resolves a duration from ENV, then a non-zero flag, then def.
// Malformed ENV values are reported instead of silently replaced.
func FromEnvOrFlagDuration(envKey string, flagVal, def time.Duration) (time.Duration, error) {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		d, err := parseDuration(ev)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envKey, err)
		}
		return d, nil
	}
	if flagVal != 0 {
		return flagVal, nil
	}
	return def, nil
}

// parseDuration accepts whole seconds ("5") or Go duration syntax ("250ms").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// durationValue is a flag.Value backed by parseDuration.
type durationValue time.Duration

func (d *durationValue) String() string {
	return time.Duration(*d).String()
}

func (d *durationValue) Set(s string) error {
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = durationValue(v)
	return nil
}
