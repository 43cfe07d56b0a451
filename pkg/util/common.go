// Package util provides utility functions for the application binaries.
package util

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// BuildInfo carries linker-injected build metadata.
type BuildInfo struct {
	Version string
	Date    string
	Commit  string
}

// na returns "N/A" if the input string is empty, otherwise it returns the input string.
func na(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

// Print writes the build version, date, and commit information to w.
func (b BuildInfo) Print(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", na(b.Version))
	fmt.Fprintf(w, "Build date: %s\n", na(b.Date))
	fmt.Fprintf(w, "Build commit: %s\n", na(b.Commit))
}

// Fields returns the build metadata as structured log fields.
func (b BuildInfo) Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", na(b.Version)),
		zap.String("build_date", na(b.Date)),
		zap.String("commit", na(b.Commit)),
	}
}

// NewLogger builds a production logger, or a development one when debug is set.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
