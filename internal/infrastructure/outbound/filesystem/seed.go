package filesystem

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
)

// LoadSeedRules reads sampling rules the emulator installs at start-up.
// Filters left empty match everything and Version defaults to 1.
func LoadSeedRules(path string) ([]rule.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed yamlSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for i := range seed.Rules {
		d := &seed.Rules[i]
		if d.RuleName == "" {
			return nil, fmt.Errorf("seed file %s: rule %d has no rule_name", path, i)
		}
		for _, f := range []*string{&d.Host, &d.HTTPMethod, &d.ResourceARN, &d.ServiceName, &d.ServiceType, &d.URLPath} {
			if *f == "" {
				*f = rule.Wildcard
			}
		}
		if d.Version == 0 {
			d.Version = 1
		}
	}
	return seed.Rules, nil
}

// SeedFile is a seed-rule file on disk.
type SeedFile struct {
	path string
}

// NewSeedFile creates a seed source reading path.
func NewSeedFile(path string) *SeedFile {
	return &SeedFile{path: path}
}

// Path returns the file path.
func (f *SeedFile) Path() string { return f.path }

// Load reads the file.
func (f *SeedFile) Load(_ context.Context) ([]rule.Definition, error) {
	return LoadSeedRules(f.path)
}
