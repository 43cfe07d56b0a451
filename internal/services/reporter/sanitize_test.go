package reporter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"item1", "item1"},
		{"a.b", "a_b"},
		{"...", "___"},
		{"host.example.com", "host_example_com"},
		{"already_safe-1 2", "already_safe-1 2"},
		{"ünï.code", "ünï_code"},
	}
	for _, tc := range tests {
		got := Sanitize(tc.in)
		assert.Equal(t, tc.want, got, "Sanitize(%q)", tc.in)
		assert.False(t, strings.Contains(got, "."), "output of %q contains a dot", tc.in)
		assert.Equal(t, got, Sanitize(got), "Sanitize is not idempotent for %q", tc.in)
	}
}
