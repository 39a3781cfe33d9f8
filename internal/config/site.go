package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as
// human-readable strings ("750ms", "2s") or as plain numeric seconds.
type Duration struct {
	time.Duration
}

// DurationFrom creates a Duration from a standard time.Duration.
func DurationFrom(d time.Duration) Duration {
	return Duration{Duration: d}
}

// IsZero reports whether the duration is zero.
func (d Duration) IsZero() bool {
	return d.Duration == 0
}

// MarshalYAML emits the duration as its string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// UnmarshalYAML accepts either a duration string or numeric seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var asString string
	if err := value.Decode(&asString); err == nil {
		parsed, err := time.ParseDuration(asString)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", asString, err)
		}
		d.Duration = parsed
		return nil
	}

	var asSeconds float64
	if err := value.Decode(&asSeconds); err == nil {
		d.Duration = time.Duration(asSeconds * float64(time.Second))
		return nil
	}

	return fmt.Errorf("unsupported duration value %q", value.Value)
}

// SiteConfig holds per-site overrides for a single host.
// This allows tuning crawl behavior for hosts that need a slower pace or a
// smaller budget than the global defaults.
type SiteConfig struct {
	// MaxPages overrides the global page budget for this host.
	// If zero, the global budget is used.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Delay overrides the global politeness delay for this host.
	// If zero, the global delay is used.
	Delay Duration `yaml:"delay,omitempty"`

	// Headers are extra HTTP headers to include in requests to this host.
	// The User-Agent header cannot be overridden here: the crawler always
	// identifies itself.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .pagelens.yaml configuration file.
type File struct {
	// Sites maps hostnames to their site-specific overrides.
	// Keys are bare hostnames without a scheme (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains overrides applied to all hosts unless a
	// site-specific entry overrides them again.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration over the file defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if site, ok := cf.Sites[host]; ok {
		if site.MaxPages != 0 {
			result.MaxPages = site.MaxPages
		}
		if !site.Delay.IsZero() {
			result.Delay = site.Delay
		}
		if len(site.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range site.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}
