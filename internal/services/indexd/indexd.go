// Package indexd implements the development index server: it accepts index
// templates and bulk requests the way an Elasticsearch node would and keeps
// the documents in a ports.DocumentRepo for inspection.
package indexd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/ports"
)

const (
	DefaultSearchSize = 10
	MaxSearchSize     = 10000
)

type Service struct {
	repo ports.DocumentRepo
	log  *zap.Logger
	now  func() time.Time
}

func New(repo ports.DocumentRepo, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log, now: time.Now}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

type templateBody struct {
	Aliases       map[string]json.RawMessage `json:"aliases"`
	Template      string                     `json:"template"`
	IndexPatterns []string                   `json:"index_patterns"`
}

// PutTemplate stores a legacy index template. The body must name at least
// one index pattern via "template" or "index_patterns".
func (s *Service) PutTemplate(ctx context.Context, name string, body []byte) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty template name", domain.ErrBadRequest)
	}
	var tb templateBody
	if err := json.Unmarshal(body, &tb); err != nil {
		return fmt.Errorf("%w: template body: %v", domain.ErrBadRequest, err)
	}
	patterns := slices.Clone(tb.IndexPatterns)
	if tb.Template != "" && !slices.Contains(patterns, tb.Template) {
		patterns = append(patterns, tb.Template)
	}
	if len(patterns) == 0 {
		return fmt.Errorf("%w: template %q has no index patterns", domain.ErrBadRequest, name)
	}
	aliases := make([]string, 0, len(tb.Aliases))
	for a := range tb.Aliases {
		aliases = append(aliases, a)
	}
	slices.Sort(aliases)

	tpl := domain.IndexTemplate{
		Name:     name,
		Body:     json.RawMessage(slices.Clone(body)),
		Patterns: patterns,
		Aliases:  aliases,
	}
	if err := s.repo.PutTemplate(ctx, tpl); err != nil {
		return err
	}
	s.log.Info("template stored", zap.String("name", name), zap.Strings("patterns", patterns), zap.Strings("aliases", aliases))
	return nil
}

// Template returns the named template or domain.ErrNotFound.
func (s *Service) Template(ctx context.Context, name string) (domain.IndexTemplate, error) {
	all, err := s.repo.Templates(ctx)
	if err != nil {
		return domain.IndexTemplate{}, err
	}
	for _, t := range all {
		if t.Name == name {
			return t, nil
		}
	}
	return domain.IndexTemplate{}, domain.ErrNotFound
}

// ItemError is the per-item failure reported in a bulk response.
type ItemError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// BulkItem is one entry of a bulk response, keyed by its action.
type BulkItem struct {
	Error  *ItemError `json:"error,omitempty"`
	Action string     `json:"-"`
	Index  string     `json:"_index"`
	Type   string     `json:"_type,omitempty"`
	Result string     `json:"result,omitempty"`
	Status int        `json:"status"`
}

// MarshalJSON wraps the item in an object keyed by its action name.
func (it BulkItem) MarshalJSON() ([]byte, error) {
	type plain BulkItem
	inner, err := json.Marshal(plain(it))
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{it.Action: inner})
}

// BulkResult mirrors the bulk API response.
type BulkResult struct {
	Items  []BulkItem `json:"items"`
	Took   int64      `json:"took"`
	Errors bool       `json:"errors"`
}

type bulkMeta struct {
	Index string `json:"_index"`
	Type  string `json:"_type"`
}

// Bulk parses an NDJSON body of action/source line pairs. Only index and
// create actions are accepted; a bad source line fails its item only.
func (s *Service) Bulk(ctx context.Context, body io.Reader) (BulkResult, error) {
	start := s.now()
	lines, err := readLines(body)
	if err != nil {
		return BulkResult{}, err
	}
	if len(lines) == 0 {
		return BulkResult{}, fmt.Errorf("%w: request body is required", domain.ErrBadRequest)
	}
	if len(lines)%2 != 0 {
		return BulkResult{}, fmt.Errorf("%w: action line %d has no source", domain.ErrBadRequest, len(lines))
	}

	res := BulkResult{Items: make([]BulkItem, 0, len(lines)/2)}
	docs := make([]domain.StoredDocument, 0, len(lines)/2)
	for i := 0; i < len(lines); i += 2 {
		action, meta, err := parseAction(lines[i])
		if err != nil {
			return BulkResult{}, fmt.Errorf("%w: line %d: %v", domain.ErrBadRequest, i+1, err)
		}
		item := BulkItem{Action: action, Index: meta.Index, Type: meta.Type}
		switch src := lines[i+1]; {
		case meta.Index == "":
			item.Status = 400
			item.Error = &ItemError{Type: "action_request_validation_exception", Reason: "index is missing"}
		case !isObject(src):
			item.Status = 400
			item.Error = &ItemError{Type: "mapper_parsing_exception", Reason: "failed to parse document source"}
		default:
			item.Status = 201
			item.Result = "created"
			docs = append(docs, domain.StoredDocument{
				Index:  meta.Index,
				Type:   meta.Type,
				Source: json.RawMessage(src),
			})
		}
		if item.Error != nil {
			res.Errors = true
		}
		res.Items = append(res.Items, item)
	}

	if len(docs) > 0 {
		if err := s.repo.Index(ctx, docs); err != nil {
			return BulkResult{}, err
		}
	}
	res.Took = s.now().Sub(start).Milliseconds()
	s.log.Debug("bulk indexed", zap.Int("items", len(res.Items)), zap.Int("stored", len(docs)), zap.Bool("errors", res.Errors))
	return res, nil
}

func readLines(r io.Reader) ([][]byte, error) {
	br := bufio.NewReader(r)
	var lines [][]byte
	for {
		line, err := br.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			lines = append(lines, trimmed)
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read bulk body: %w", err)
		}
	}
}

func parseAction(line []byte) (string, bulkMeta, error) {
	var action map[string]bulkMeta
	if err := json.Unmarshal(line, &action); err != nil {
		return "", bulkMeta{}, fmt.Errorf("malformed action: %v", err)
	}
	if len(action) != 1 {
		return "", bulkMeta{}, errors.New("action line must hold exactly one action")
	}
	for name, meta := range action {
		if name != "index" && name != "create" {
			return "", bulkMeta{}, fmt.Errorf("unsupported action %q", name)
		}
		return name, meta, nil
	}
	return "", bulkMeta{}, nil
}

func isObject(b []byte) bool {
	var v map[string]json.RawMessage
	return json.Unmarshal(b, &v) == nil
}

// SearchResult holds the documents matched by Search.
type SearchResult struct {
	Hits []domain.StoredDocument
	Took int64
}

// Search returns documents stored under target, a comma-separated list of
// index names, wildcard patterns, or template aliases. q is empty or
// "Type:<kind>".
func (s *Service) Search(ctx context.Context, target, q string, size int) (SearchResult, error) {
	start := s.now()
	query, err := parseQuery(q)
	if err != nil {
		return SearchResult{}, err
	}
	switch {
	case size < 0 || size > MaxSearchSize:
		return SearchResult{}, fmt.Errorf("%w: size must be between 0 and %d", domain.ErrBadRequest, MaxSearchSize)
	case size == 0:
		size = DefaultSearchSize
	}
	patterns, err := s.resolve(ctx, target)
	if err != nil {
		return SearchResult{}, err
	}
	query.Patterns = patterns
	query.Limit = size

	hits, err := s.repo.Search(ctx, query)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Hits: hits, Took: s.now().Sub(start).Milliseconds()}, nil
}

func parseQuery(q string) (domain.SearchQuery, error) {
	q = strings.TrimSpace(q)
	if q == "" || q == "*" {
		return domain.SearchQuery{}, nil
	}
	field, value, ok := strings.Cut(q, ":")
	if !ok || field != "Type" || value == "" {
		return domain.SearchQuery{}, fmt.Errorf("%w: unsupported query %q", domain.ErrBadRequest, q)
	}
	return domain.SearchQuery{Type: value}, nil
}

// Delete removes every document stored under target and returns how many
// were removed. A concrete index name with no documents is ErrNotFound.
func (s *Service) Delete(ctx context.Context, target string) (int, error) {
	patterns, err := s.resolve(ctx, target)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.Delete(ctx, patterns)
	if err != nil {
		return 0, err
	}
	if n == 0 && !slices.ContainsFunc(patterns, isWildcard) {
		return 0, domain.ErrNotFound
	}
	s.log.Info("documents deleted", zap.String("target", target), zap.Int("count", n))
	return n, nil
}

func (s *Service) resolve(ctx context.Context, target string) ([]string, error) {
	names := strings.Split(target, ",")
	tpls, err := s.repo.Templates(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		switch {
		case n == "":
			continue
		case n == "_all":
			out = append(out, "*")
			continue
		}
		aliased := false
		for _, t := range tpls {
			if slices.Contains(t.Aliases, n) {
				out = append(out, t.Patterns...)
				aliased = true
			}
		}
		if !aliased {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty target", domain.ErrBadRequest)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func isWildcard(p string) bool {
	return strings.HasSuffix(p, "*")
}
