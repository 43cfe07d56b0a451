package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/ports"
)

type templateBody struct {
	Template string                     `json:"template"`
	Settings templateSettings           `json:"settings"`
	Aliases  map[string]struct{}        `json:"aliases"`
	Mappings map[string]templateMapping `json:"mappings"`
}

type templateSettings struct {
	NumberOfShards int `json:"number_of_shards"`
}

type templateMapping struct {
	All        allField                   `json:"_all"`
	Properties map[string]propertyMapping `json:"properties"`
}

type allField struct {
	Enabled bool `json:"enabled"`
}

type propertyMapping struct {
	Type  string `json:"type"`
	Index string `json:"index"`
}

// TemplateBody renders the index template binding "<prefix>*" to aliases.
// The pattern is lowercased to match the names ResolveIndexName produces.
// Type, Name and Unit are mapped as non-analyzed strings for every kind;
// other fields are left to dynamic mapping.
func TemplateBody(prefix string, aliases []string) ([]byte, error) {
	keyword := propertyMapping{Type: "string", Index: "not_analyzed"}
	body := templateBody{
		Template: strings.ToLower(prefix) + "*",
		Settings: templateSettings{NumberOfShards: 1},
		Aliases:  make(map[string]struct{}, len(aliases)),
		Mappings: make(map[string]templateMapping, len(domain.MappedKinds)),
	}
	for _, a := range aliases {
		body.Aliases[a] = struct{}{}
	}
	for _, k := range domain.MappedKinds {
		body.Mappings[string(k)] = templateMapping{
			Properties: map[string]propertyMapping{
				"Type": keyword,
				"Name": keyword,
				"Unit": keyword,
			},
		}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal template: %w", err)
	}
	return b, nil
}

// TemplateInitializer applies the index template before the first publish.
type TemplateInitializer struct {
	indexer ports.Indexer
}

// NewTemplateInitializer returns an initializer sending through indexer.
func NewTemplateInitializer(indexer ports.Indexer) *TemplateInitializer {
	return &TemplateInitializer{indexer: indexer}
}

// Ensure creates or replaces the template. The template name is lowercased.
func (t *TemplateInitializer) Ensure(ctx context.Context, prefix string, aliases []string, templateName string) error {
	body, err := TemplateBody(prefix, aliases)
	if err != nil {
		return err
	}
	if err := t.indexer.PutTemplate(ctx, strings.ToLower(templateName), body); err != nil {
		return asTransportError("put template", err)
	}
	return nil
}
