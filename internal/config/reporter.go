package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/misc"
)

// Index names are lowercased when resolved, so DefaultIndexPrefix may keep its
// mixed case.
const (
	DefaultHostPort       = 9200
	DefaultIndexPrefix    = "MetricsReports"
	DefaultDateFormat     = "yyyy.MM"
	DefaultTemplateName   = "metricsReportsTemplate"
	defaultReportInterval = 10 * time.Second
	defaultPollInterval   = 2 * time.Second
	defaultPublishTimeout = 10 * time.Second
)

// ReporterConfig is the full set of reporter options.
type ReporterConfig struct {
	HostName              string
	IndexPrefix           string
	IndexSuffixDateFormat string
	TemplateName          string
	Aliases               []string
	HostPort              int
	ReportInterval        time.Duration
	PollInterval          time.Duration
	PublishTimeout        time.Duration
	DeltaMaxIdleCycles    int
	Gzip                  bool
	Debug                 bool
}

// DefaultReporterConfig returns a config with every optional field at its default.
func DefaultReporterConfig() ReporterConfig {
	return ReporterConfig{
		HostPort:              DefaultHostPort,
		IndexPrefix:           DefaultIndexPrefix,
		IndexSuffixDateFormat: DefaultDateFormat,
		TemplateName:          DefaultTemplateName,
		ReportInterval:        defaultReportInterval,
		PollInterval:          defaultPollInterval,
		PublishTimeout:        defaultPublishTimeout,
	}
}

// ENV > CLI > defaults
func LoadReporterConfig(args []string, out io.Writer) (ReporterConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("reporter", flag.ContinueOnError)
	fs.SetOutput(out)

	var hostOpt, prefixOpt, aliasesOpt, formatOpt, templateOpt string
	var portOpt, idleOpt int
	var reportOpt, pollOpt, timeoutOpt durationValue
	var gzipOpt, debugOpt bool

	fs.StringVar(&hostOpt, "host", "", "Elasticsearch host name or URL (required)")
	fs.IntVar(&portOpt, "port", 0, fmt.Sprintf("Elasticsearch port, default: %d", DefaultHostPort))
	fs.StringVar(&prefixOpt, "prefix", "", fmt.Sprintf("index prefix, default: %s", DefaultIndexPrefix))
	fs.StringVar(&aliasesOpt, "aliases", "", "comma-separated index aliases (at least one)")
	fs.StringVar(&formatOpt, "date-format", "", fmt.Sprintf("index suffix date format, default: %s", DefaultDateFormat))
	fs.StringVar(&templateOpt, "template", "", fmt.Sprintf("index template name, default: %s", DefaultTemplateName))
	fs.Var(&reportOpt, "r", fmt.Sprintf("report interval, seconds or duration, default: %v", defaultReportInterval))
	fs.Var(&pollOpt, "p", fmt.Sprintf("poll interval, seconds or duration, default: %v", defaultPollInterval))
	fs.Var(&timeoutOpt, "t", fmt.Sprintf("publish timeout, seconds or duration, default: %v", defaultPublishTimeout))
	fs.IntVar(&idleOpt, "idle", 0, "evict delta state unseen for N cycles (0 - never)")
	fs.BoolVar(&gzipOpt, "gzip", false, "gzip bulk request bodies")
	fs.BoolVar(&debugOpt, "debug", false, "development logging")

	if err := fs.Parse(args); err != nil {
		return ReporterConfig{}, err
	}

	cfg := DefaultReporterConfig()
	cfg.HostName = FromEnvOrFlag("ES_HOST", hostOpt, "")
	cfg.HostPort = FromEnvOrFlagInt("ES_PORT", portOpt, DefaultHostPort, 1)
	cfg.IndexPrefix = FromEnvOrFlag("ES_INDEX_PREFIX", prefixOpt, DefaultIndexPrefix)
	cfg.Aliases = FromEnvOrFlagList("ES_ALIASES", aliasesOpt)
	cfg.IndexSuffixDateFormat = FromEnvOrFlag("ES_INDEX_DATE_FORMAT", formatOpt, DefaultDateFormat)
	cfg.TemplateName = FromEnvOrFlag("ES_TEMPLATE_NAME", templateOpt, DefaultTemplateName)
	cfg.DeltaMaxIdleCycles = FromEnvOrFlagInt("DELTA_MAX_IDLE_CYCLES", idleOpt, 0, 0)
	cfg.Gzip = FromEnvOrFlagBool("ES_GZIP", gzipOpt, false)
	cfg.Debug = FromEnvOrFlagBool("DEBUG", debugOpt, false)

	durations := []struct {
		dst  *time.Duration
		env  string
		what string
		flag durationValue
	}{
		{&cfg.ReportInterval, "REPORT_INTERVAL", "report interval", reportOpt},
		{&cfg.PollInterval, "POLL_INTERVAL", "poll interval", pollOpt},
		{&cfg.PublishTimeout, "PUBLISH_TIMEOUT", "publish timeout", timeoutOpt},
	}
	for _, d := range durations {
		v, err := FromEnvOrFlagDuration(d.env, time.Duration(d.flag), *d.dst)
		if err != nil {
			return ReporterConfig{}, err
		}
		if v <= 0 {
			return ReporterConfig{}, fmt.Errorf("%s must be > 0, got %v", d.what, v)
		}
		*d.dst = v
	}

	return cfg, nil
}

// Validate reports every missing or malformed required option as a *domain.ConfigError.
func (c ReporterConfig) Validate() error {
	var problems []string
	if strings.TrimSpace(c.HostName) == "" {
		problems = append(problems, "host name is not configured")
	}
	if c.HostPort <= 0 || c.HostPort > 65535 {
		problems = append(problems, fmt.Sprintf("host port %d is out of range", c.HostPort))
	}
	if strings.TrimSpace(c.IndexPrefix) == "" {
		problems = append(problems, "index prefix is not configured")
	}
	if len(c.Aliases) == 0 {
		problems = append(problems, "at least one alias should be specified")
	}
	if _, err := misc.FormatDate(c.IndexSuffixDateFormat, time.Unix(0, 0)); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(c.TemplateName) == "" {
		problems = append(problems, "template name is not configured")
	}
	if len(problems) > 0 {
		return &domain.ConfigError{Problems: problems}
	}
	return nil
}

// BaseURL returns "<scheme>://<host>:<port>", defaulting the scheme to http.
func (c ReporterConfig) BaseURL() string {
	host := strings.TrimRight(strings.TrimSpace(c.HostName), "/")
	if !strings.HasPrefix(strings.ToLower(host), "http") {
		host = "http://" + host
	}
	return host + ":" + strconv.Itoa(c.HostPort)
}
