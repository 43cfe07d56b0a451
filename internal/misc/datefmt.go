package misc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

// FormatDate renders t with a date pattern. Patterns containing '%' are
// strftime patterns; anything else uses yyyy/MM/dd-style tokens where
// quoted text and backslash-escaped characters are copied literally, MMM
// and ddd spell out month and day names, and unknown characters pass
// through.
func FormatDate(pattern string, t time.Time) (string, error) {
	if strings.ContainsRune(pattern, '%') {
		s, err := strftime.Format(pattern, t)
		if err != nil {
			return "", fmt.Errorf("strftime pattern %q: %w", pattern, err)
		}
		return s, nil
	}
	return formatTokens(pattern, t)
}

func formatTokens(pattern string, t time.Time) (string, error) {
	var b strings.Builder
	rs := []rune(pattern)
	for i := 0; i < len(rs); {
		c := rs[i]
		if c == '\'' || c == '"' {
			end := i + 1
			for end < len(rs) && rs[end] != c {
				end++
			}
			if end == len(rs) {
				return "", fmt.Errorf("date pattern %q: unterminated quote", pattern)
			}
			b.WriteString(string(rs[i+1 : end]))
			i = end + 1
			continue
		}
		if c == '\\' {
			if i+1 == len(rs) {
				return "", fmt.Errorf("date pattern %q: trailing backslash", pattern)
			}
			b.WriteRune(rs[i+1])
			i += 2
			continue
		}
		n := 1
		for i+n < len(rs) && rs[i+n] == c {
			n++
		}
		b.WriteString(token(c, n, t))
		i += n
	}
	return b.String(), nil
}

func token(c rune, n int, t time.Time) string {
	switch c {
	case 'y':
		switch n {
		case 1:
			return strconv.Itoa(t.Year() % 100)
		case 2:
			return pad(t.Year()%100, 2)
		default:
			return pad(t.Year(), n)
		}
	case 'M':
		if n >= 3 {
			return name(t.Month().String(), n)
		}
		return num(int(t.Month()), n)
	case 'd':
		if n >= 3 {
			return name(t.Weekday().String(), n)
		}
		return num(t.Day(), n)
	case 'H':
		return num(t.Hour(), n)
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return num(h, n)
	case 'm':
		return num(t.Minute(), n)
	case 's':
		return num(t.Second(), n)
	}
	return strings.Repeat(string(c), n)
}

// name abbreviates to three letters for a three-letter token and spells the
// full name for longer ones.
func name(full string, n int) string {
	if n == 3 {
		return full[:3]
	}
	return full
}

func num(v, n int) string {
	if n == 1 {
		return strconv.Itoa(v)
	}
	return pad(v, 2)
}

func pad(v, width int) string {
	s := strconv.Itoa(v)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
