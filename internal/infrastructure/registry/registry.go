// Package registry loads the deployment's corpus set from a YAML file.
// The registry is data, not code: adding a corpus is a config change.
// It is immutable after Load and safe for concurrent reads.
package registry

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/atlashist/archive-assistant/internal/core/domain"
)

type Corpus struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type registryFile struct {
	Corpora []Corpus `yaml:"corpora"`
}

type Registry struct {
	corpora []Corpus
	ids     []string
	byID    map[string]Corpus
}

func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus registry: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse corpus registry yaml: %w", err)
	}
	return New(file.Corpora)
}

func New(corpora []Corpus) (*Registry, error) {
	if len(corpora) == 0 {
		return nil, fmt.Errorf("corpus registry is empty")
	}

	byID := make(map[string]Corpus, len(corpora))
	ids := make([]string, 0, len(corpora))
	for _, c := range corpora {
		if c.ID == "" {
			return nil, fmt.Errorf("corpus registry entry without id")
		}
		if _, exists := byID[c.ID]; exists {
			return nil, fmt.Errorf("duplicate corpus id: %s", c.ID)
		}
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)

	return &Registry{
		corpora: corpora,
		ids:     ids,
		byID:    byID,
	}, nil
}

// List returns corpus ids in stable sorted order.
func (r *Registry) List() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r *Registry) Contains(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Describe returns the display metadata for one corpus id.
func (r *Registry) Describe(id string) (domain.CorpusInfo, bool) {
	c, ok := r.byID[id]
	if !ok {
		return domain.CorpusInfo{}, false
	}
	return domain.CorpusInfo{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
	}, true
}
