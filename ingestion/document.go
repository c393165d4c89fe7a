package ingestion

import (
	"fmt"
	"strings"

	"github.com/poiesic/concierge/core"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage applies to documents and entries that don't name one.
const DefaultLanguage = "en"

// Document is one tenant's knowledge base in YAML form.
type Document struct {
	Tenant   string     `yaml:"tenant"`
	Language string     `yaml:"language"`
	Entries  []EntryDoc `yaml:"entries"`
}

// EntryDoc is one entry as written by the tenant.
type EntryDoc struct {
	ID       uint64   `yaml:"id"`
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer"`
	Category string   `yaml:"category"`
	Keywords Keywords `yaml:"keywords"`
	Language string   `yaml:"language"`
	Priority int      `yaml:"priority"`
	Active   *bool    `yaml:"active"`
}

// Keywords accepts either a comma-separated string or a list of strings.
type Keywords string

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *Keywords) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*k = Keywords(value.Value)
		return nil
	case yaml.SequenceNode:
		var parts []string
		if err := value.Decode(&parts); err != nil {
			return err
		}
		*k = Keywords(strings.Join(parts, ", "))
		return nil
	default:
		return fmt.Errorf("line %d: keywords must be a string or a list", value.Line)
	}
}

// toEntry converts the document form into a KnowledgeEntry.
// Entries are active unless marked otherwise.
func (d *EntryDoc) toEntry(tenant, language string) *core.KnowledgeEntry {
	if d.Language != "" {
		language = d.Language
	}
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	return &core.KnowledgeEntry{
		Id:       core.ID(d.ID),
		TenantID: strings.TrimSpace(tenant),
		Question: strings.TrimSpace(d.Question),
		Answer:   strings.TrimSpace(d.Answer),
		Category: strings.TrimSpace(d.Category),
		Keywords: strings.TrimSpace(string(d.Keywords)),
		Language: strings.ToLower(strings.TrimSpace(language)),
		Priority: d.Priority,
		IsActive: active,
	}
}
