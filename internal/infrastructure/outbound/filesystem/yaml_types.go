package filesystem

import "github.com/sophialabs/samplingconformance/internal/domain/rule"

// yamlCatalog is one catalog override file. Every key is optional; a present
// subset or test-case list replaces the built-in one.
type yamlCatalog struct {
	Rules       []yamlRule     `yaml:"rules,omitempty"`
	Independent []string       `yaml:"independent,omitempty"`
	Priority    []string       `yaml:"priority,omitempty"`
	Reservoir   []string       `yaml:"reservoir,omitempty"`
	TestCases   []yamlTestCase `yaml:"test_cases,omitempty"`
}

// yamlRule patches a built-in rule. Unset fields keep their built-in value.
type yamlRule struct {
	Name            string            `yaml:"name"`
	Priority        *int              `yaml:"priority,omitempty"`
	FixedRate       *float64          `yaml:"fixed_rate,omitempty"`
	ReservoirSize   *int              `yaml:"reservoir_size,omitempty"`
	ExpectedSampled *float64          `yaml:"expected_sampled,omitempty"`
	ServiceName     string            `yaml:"service_name,omitempty"`
	HTTPMethod      string            `yaml:"http_method,omitempty"`
	URLPath         string            `yaml:"url_path,omitempty"`
	Attributes      map[string]string `yaml:"attributes,omitempty"`
}

type yamlTestCase struct {
	User     string   `yaml:"user"`
	Name     string   `yaml:"name"`
	Required string   `yaml:"required"`
	Method   string   `yaml:"method"`
	Endpoint string   `yaml:"endpoint"`
	Matches  []string `yaml:"matches,omitempty"`
	// Baseline marks the case used by the reservoir phase.
	Baseline bool `yaml:"baseline,omitempty"`
}

// yamlSeed is the emulator's seed-rule file.
type yamlSeed struct {
	Rules []rule.Definition `yaml:"rules"`
}
