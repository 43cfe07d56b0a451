// Package elastic implements ports.Indexer with esapi requests performed
// on a bare elastictransport client. Legacy clusters, which accept typed bulk
// actions and string mappings, do not send X-Elastic-Product, so the
// product check of elasticsearch.Client must not run.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/elastic/elastic-transport-go/v8/elastictransport"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/ports"
)

const errorBodyLimit = 4 << 10

// Client sends bulk and template requests to a single backend address.
// Retries are disabled: a failed request is reported once.
type Client struct {
	tp  esapi.Transport
	log *zap.Logger
}

var _ ports.Indexer = (*Client)(nil)

type Options struct {
	Transport http.RoundTripper
	Logger    *zap.Logger
	Gzip      bool
}

type Option func(*Options)

// WithTransport overrides the HTTP round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *Options) {
		o.Transport = rt
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithGzip compresses request bodies.
func WithGzip(enabled bool) Option {
	return func(o *Options) {
		o.Gzip = enabled
	}
}

// New returns a client for baseURL ("http://host:port").
func New(baseURL string, opts ...Option) (*Client, error) {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("elasticsearch address %q: invalid URL", baseURL)
	}
	tp, err := elastictransport.New(elastictransport.Config{
		URLs:                []*url.URL{u},
		DisableRetry:        true,
		CompressRequestBody: o.Gzip,
		Transport:           o.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch transport: %w", err)
	}
	return &Client{tp: tp, log: o.Logger}, nil
}

// Bulk submits an NDJSON bulk body. A response with "errors": true is
// reported as domain.ErrBulkRejected.
func (c *Client) Bulk(ctx context.Context, body []byte) (retErr error) {
	res, err := esapi.BulkRequest{Body: bytes.NewReader(body)}.Do(ctx, c.tp)
	if err != nil {
		return &domain.TransportError{Op: "bulk", Err: err}
	}
	defer closeBody(res, &retErr)

	if res.IsError() {
		return statusError("bulk", res)
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return &domain.TransportError{Op: "bulk", StatusCode: res.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if br.Errors {
		failed, first := br.failures()
		c.log.Debug("bulk items rejected", zap.Int("failed", failed), zap.Int("items", len(br.Items)))
		return &domain.TransportError{
			Op:         "bulk",
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("%w: %d of %d items failed, first: %s", domain.ErrBulkRejected, failed, len(br.Items), first),
		}
	}
	return nil
}

// PutTemplate creates or replaces the named legacy index template.
func (c *Client) PutTemplate(ctx context.Context, name string, body []byte) (retErr error) {
	res, err := esapi.IndicesPutTemplateRequest{Name: name, Body: bytes.NewReader(body)}.Do(ctx, c.tp)
	if err != nil {
		return &domain.TransportError{Op: "put template", Err: err}
	}
	defer closeBody(res, &retErr)

	if res.IsError() {
		return statusError("put template", res)
	}
	return nil
}

type bulkResponse struct {
	Items  []map[string]bulkItem `json:"items"`
	Errors bool                  `json:"errors"`
}

type bulkItem struct {
	Error  *errorCause `json:"error"`
	Status int         `json:"status"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (e *errorCause) String() string {
	if e.Reason == "" {
		return e.Type
	}
	return e.Type + ": " + e.Reason
}

func (br *bulkResponse) failures() (int, string) {
	failed := 0
	first := "unknown"
	for _, item := range br.Items {
		for _, r := range item {
			if r.Error == nil && r.Status < 300 {
				continue
			}
			if failed == 0 {
				if r.Error != nil {
					first = r.Error.String()
				} else {
					first = fmt.Sprintf("status %d", r.Status)
				}
			}
			failed++
		}
	}
	return failed, first
}

func statusError(op string, res *esapi.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, errorBodyLimit))
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		var cause errorCause
		if json.Unmarshal(body.Error, &cause) == nil && cause.Type != "" {
			msg = cause.String()
		} else {
			msg = strings.Trim(string(body.Error), `"`)
		}
	}
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	return &domain.TransportError{Op: op, StatusCode: res.StatusCode, Err: errors.New(msg)}
}

func closeBody(res *esapi.Response, retErr *error) {
	_, _ = io.Copy(io.Discard, res.Body)
	if cerr := res.Body.Close(); cerr != nil && *retErr == nil {
		*retErr = fmt.Errorf("close response body: %w", cerr)
	}
}
