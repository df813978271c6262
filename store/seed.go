package store

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/types"
)

// Seed describes the entities to serve and their initial records. JSON is
// accepted as well since it is valid YAML.
type Seed struct {
	Entities []SeedEntity `yaml:"entities" json:"entities"`
}

type SeedEntity struct {
	Name    string                   `yaml:"name" json:"name"`
	Fields  []filter.Field           `yaml:"fields" json:"fields"`
	Records []map[string]interface{} `yaml:"records" json:"records"`
}

// RepositoryFactory creates the repository for an entity. The returned
// repository is filled with the seed records when it implements Loader.
type RepositoryFactory func(ctx context.Context, registry *filter.Registry) (Repository, error)

func MemoryFactory(opts ...filter.Option) RepositoryFactory {
	return func(ctx context.Context, registry *filter.Registry) (Repository, error) {
		return NewMemoryRepository(registry, opts...), nil
	}
}

func ReadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && err != io.EOF {
		return nil, fmt.Errorf("unable to decode seed: %w", err)
	}
	return &seed, nil
}

func LoadSeed(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seed, err := ReadSeed(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

// Build creates the registries and repositories described by the seed.
func (s *Seed) Build(ctx context.Context, factory RepositoryFactory) ([]*Entity, error) {
	entities := make([]*Entity, 0, len(s.Entities))
	for _, se := range s.Entities {
		registry, err := filter.NewRegistry(se.Name, withIDField(se.Fields)...)
		if err != nil {
			return nil, err
		}
		repository, err := factory(ctx, registry)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", se.Name, err)
		}

		if loader, ok := repository.(Loader); ok && len(se.Records) > 0 {
			records := make([]types.Record, len(se.Records))
			for i, r := range se.Records {
				records[i] = types.Record(r)
			}
			if err := loader.Load(ctx, records); err != nil {
				return nil, fmt.Errorf("entity %s: %w", se.Name, err)
			}
		}
		entities = append(entities, &Entity{Registry: registry, Repository: repository})
	}
	return entities, nil
}

func withIDField(fields []filter.Field) []filter.Field {
	for _, f := range fields {
		if f.Name == types.IDField {
			return fields
		}
	}
	return append([]filter.Field{{Name: types.IDField, Type: filter.TypeText, Label: "ID"}}, fields...)
}
