package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/vshulcz/Golastic/internal/misc"
)

// TimestampLayout is the layout of the Timestamp field of every document.
const TimestampLayout = "2006-01-02T15:04:05.0000Z07:00"

// ResolveIndexName returns "<prefix>-<ts formatted with dateFormat>",
// lowercased because Elasticsearch rejects index names with upper-case
// letters. The timestamp is rendered in UTC.
func ResolveIndexName(prefix string, ts time.Time, dateFormat string) (string, error) {
	suffix, err := misc.FormatDate(dateFormat, ts.UTC())
	if err != nil {
		return "", fmt.Errorf("resolve index name: %w", err)
	}
	return strings.ToLower(prefix + "-" + suffix), nil
}

// FormatTimestamp renders a cycle timestamp for the Timestamp field.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}
