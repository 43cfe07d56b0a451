package reporter

import "strings"

// Sanitize makes an item label safe to use as part of a document field name.
func Sanitize(raw string) string {
	return strings.ReplaceAll(raw, ".", "_")
}
