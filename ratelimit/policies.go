package ratelimit

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

/* Named policies used across the API surface
 * These are constants of policy, not separate algorithms
 */
var (
	// Strict guards expensive operations (analytics, delivery history)
	Strict = Config{Window: 15 * time.Minute, MaxRequests: 20}

	// Moderate guards authenticated management endpoints
	Moderate = Config{Window: 15 * time.Minute, MaxRequests: 100}

	// Lenient guards public, read-only endpoints
	Lenient = Config{Window: 15 * time.Minute, MaxRequests: 300}

	// Tracking absorbs high-volume click/event traffic
	Tracking = Config{Window: time.Minute, MaxRequests: 60}
)

// Policies maps policy names to their configs, post any file overrides
type Policies struct {
	Strict   Config
	Moderate Config
	Lenient  Config
	Tracking Config
}

// DefaultPolicies returns the built-in policy set
func DefaultPolicies() Policies {
	return Policies{
		Strict:   Strict,
		Moderate: Moderate,
		Lenient:  Lenient,
		Tracking: Tracking,
	}
}

// policyFile is the YAML override file structure
type policyFile struct {
	Policies map[string]policyConfig `yaml:"policies"`
}

type policyConfig struct {
	Window      string `yaml:"window"`
	MaxRequests int    `yaml:"max_requests"`
}

/* LoadPolicies reads optional overrides from a YAML file:
 *
 *   policies:
 *     strict:
 *       window: 15m
 *       max_requests: 20
 *
 * Unknown names are rejected; omitted names keep their defaults.
 */
func LoadPolicies(filePath string) (Policies, error) {
	policies := DefaultPolicies()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return Policies{}, fmt.Errorf("reading policy file: %w", err)
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Policies{}, fmt.Errorf("parsing policy YAML: %w", err)
	}

	for name, pc := range file.Policies {
		cfg, err := pc.toConfig()
		if err != nil {
			return Policies{}, fmt.Errorf("validating policy %s: %w", name, err)
		}
		switch name {
		case "strict":
			policies.Strict = cfg
		case "moderate":
			policies.Moderate = cfg
		case "lenient":
			policies.Lenient = cfg
		case "tracking":
			policies.Tracking = cfg
		default:
			return Policies{}, fmt.Errorf("unknown policy name: %s", name)
		}
	}

	return policies, nil
}

func (pc policyConfig) toConfig() (Config, error) {
	window, err := time.ParseDuration(pc.Window)
	if err != nil {
		return Config{}, fmt.Errorf("parsing window: %w", err)
	}
	if window <= 0 {
		return Config{}, fmt.Errorf("window must be positive")
	}
	if pc.MaxRequests <= 0 {
		return Config{}, fmt.Errorf("max_requests must be positive")
	}
	return Config{Window: window, MaxRequests: pc.MaxRequests}, nil
}
