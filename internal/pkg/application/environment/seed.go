package environment

import (
	"context"
	"fmt"
	"io"

	yaml "gopkg.in/yaml.v2"

	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/logging"
	"github.com/sensemesh/iot-control-loop/pkg/types"
)

type SeedEntry struct {
	ID           string       `yaml:"id"`
	Kind         string       `yaml:"kind"`
	Unit         string       `yaml:"unit"`
	Coefficients Coefficients `yaml:"coefficients"`
	Noise        float32      `yaml:"noise"`
}

type SeedFile struct {
	Generators []SeedEntry `yaml:"generators"`
}

func LoadSeed(data io.Reader) (*SeedFile, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	seed := SeedFile{}
	if err := yaml.Unmarshal(buf, &seed); err != nil {
		return nil, err
	}

	return &seed, nil
}

// Seed registers a generator per entry in the YAML stream, replacing any
// generators already registered under the same ids. An entry with an
// unknown kind or unit fails the whole seed.
func (e *Environment) Seed(ctx context.Context, data io.Reader) error {
	log := logging.GetLoggerFromContext(ctx)

	seed, err := LoadSeed(data)
	if err != nil {
		return fmt.Errorf("parsing seed: %w", err)
	}

	for _, entry := range seed.Generators {
		kind, err := types.ParseKind(entry.Kind)
		if err != nil {
			return fmt.Errorf("seeding generator '%s': %w", entry.ID, err)
		}
		unit, err := types.ParseUnit(entry.Unit)
		if err != nil {
			return fmt.Errorf("seeding generator '%s': %w", entry.ID, err)
		}

		e.Register(types.ID(entry.ID), NewGenerator(kind, unit, entry.Coefficients, entry.Noise))
		log.Info().Msgf("seeded a %s generator for '%s'", kind, entry.ID)
	}

	return nil
}
