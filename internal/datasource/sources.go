package datasource

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/graintel/pkg/models"
)

// LoadSources reads and flattens the YAML sources catalog at path.
func LoadSources(path string) ([]models.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources catalog: %w", err)
	}
	return ParseSources(data)
}

// ParseSources flattens a catalog of the form
//
//	sources:
//	  grains:
//	    - {name: ..., url: ..., type: rss}
//	  macro: [...]
//
// into a list where every source carries its group. Group and entry order
// follow the document.
func ParseSources(data []byte) ([]models.Source, error) {
	var doc struct {
		Sources yaml.Node `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if doc.Sources.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: \"sources\" must be a mapping of groups", ErrInvalidCatalog)
	}

	var out []models.Source
	content := doc.Sources.Content
	for i := 0; i+1 < len(content); i += 2 {
		group := strings.ToLower(strings.TrimSpace(content[i].Value))

		var list []models.Source
		if err := content[i+1].Decode(&list); err != nil {
			return nil, fmt.Errorf("%w: group %q: %v", ErrInvalidCatalog, group, err)
		}
		for j, s := range list {
			s.Type = models.SourceType(strings.ToLower(string(s.Type)))
			if s.URL == "" {
				return nil, fmt.Errorf("%w: group %q entry %d has no url", ErrInvalidCatalog, group, j)
			}
			if s.Name == "" {
				s.Name = s.URL
			}
			s.Group = group
			out = append(out, s)
		}
	}
	return out, nil
}

// FilterGroups keeps the sources whose group is listed. An empty list keeps
// everything.
func FilterGroups(sources []models.Source, groups []string) []models.Source {
	if len(groups) == 0 {
		return sources
	}
	want := make(map[string]bool, len(groups))
	for _, g := range groups {
		want[strings.ToLower(strings.TrimSpace(g))] = true
	}
	var out []models.Source
	for _, s := range sources {
		if want[s.Group] {
			out = append(out, s)
		}
	}
	return out
}

// LimitSources truncates the list to max entries when max > 0.
func LimitSources(sources []models.Source, max int) []models.Source {
	if max > 0 && len(sources) > max {
		return sources[:max]
	}
	return sources
}
