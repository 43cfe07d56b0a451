package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

const (
	defaultIndexdAddr = ":9200"
	defaultDSN        = ""
)

// IndexdConfig configures the development index server.
type IndexdConfig struct {
	Address string
	DSN     string
	Debug   bool
}

// CLI > ENV > defaults
func LoadIndexdConfig(args []string, out io.Writer) (IndexdConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("indexd", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt string
	var dsnOpt string
	var debugOpt bool

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("HTTP listen address, default: %s", defaultIndexdAddr))
	fs.StringVar(&dsnOpt, "d", "", "DATABASE_DSN for Postgres, in-memory storage when empty")
	fs.BoolVar(&debugOpt, "debug", false, "development logging")

	if err := fs.Parse(args); err != nil {
		return IndexdConfig{}, err
	}

	addr := addrOpt
	if strings.TrimSpace(addr) == "" {
		addr = FromEnvOrFlag("ADDRESS", "", defaultIndexdAddr)
	}
	addr = normalizeListenAddr(addr)

	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return IndexdConfig{}, fmt.Errorf("invalid listen address: %q", addr)
	}

	dsn := strings.TrimSpace(dsnOpt)
	if dsn == "" {
		dsn = FromEnvOrFlag("DATABASE_DSN", "", defaultDSN)
	}

	return IndexdConfig{
		Address: addr,
		DSN:     dsn,
		Debug:   FromEnvOrFlagBool("DEBUG", debugOpt, false),
	}, nil
}

func normalizeListenAddr(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultIndexdAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			return u.Host
		}
	}
	if !strings.Contains(s, ":") {
		return ":" + s
	}
	return s
}
