package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigError reports a malformed or incomplete sites file. It is always
// raised before any network activity.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

func Errorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// Action is a check kind. The sites file may only declare ActionReturnString
// and ActionRedirect; ActionCertExpiry tasks are derived during expansion.
type Action string

const (
	ActionReturnString Action = "return string"
	ActionRedirect     Action = "redirect"
	ActionCertExpiry   Action = "cert expiry"
)

func (a *Action) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch Action(s) {
	case ActionReturnString, ActionRedirect:
		*a = Action(s)
		return nil
	}
	return Errorf("action not recognised: %q", s)
}

// Protocol selects the URL scheme for a probe.
type Protocol string

const (
	ProtocolTLS   Protocol = "TLS"
	ProtocolNoTLS Protocol = "no-TLS"
)

func (p *Protocol) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch Protocol(s) {
	case ProtocolTLS, ProtocolNoTLS:
		*p = Protocol(s)
		return nil
	}
	return Errorf(`supported protocols are "TLS" and "no-TLS", got %q`, s)
}

// Scheme returns the URL scheme for the protocol.
func (p Protocol) Scheme() string {
	if p == ProtocolTLS {
		return "https"
	}
	return "http"
}

// Test is one declared check for a URL.
type Test struct {
	Action    Action     `yaml:"action"`
	Protocols []Protocol `yaml:"protocols"`
}

// URL is one hostname (no scheme) and its declared tests.
type URL struct {
	URL   string `yaml:"url"`
	Tests []Test `yaml:"tests"`
}

// Site describes one monitored site.
type Site struct {
	Name             string `yaml:"name"`
	ExpectedString   string `yaml:"expected string"`
	CanonicalAddress string `yaml:"canonical address"`
	URLs             []URL  `yaml:"urls"`
}

// Options holds the global options from the sites file. CertExpiryWeeks of
// zero disables certificate checks entirely.
type Options struct {
	CertExpiryWeeks int `yaml:"cert expiry weeks"`
}

// File is the top-level sites file structure.
type File struct {
	Options Options `yaml:"options"`
	Sites   []Site  `yaml:"sites"`
}

// Load reads and validates a sites file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read sites file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates sites file contents.
func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Options.CertExpiryWeeks < 0 {
		return Errorf("cert expiry weeks must not be negative, got %d", f.Options.CertExpiryWeeks)
	}
	if len(f.Sites) == 0 {
		return Errorf("no sites defined")
	}

	seen := make(map[string]bool)
	for _, site := range f.Sites {
		if site.Name == "" {
			return Errorf("site with no name")
		}
		if seen[site.Name] {
			return Errorf("duplicate site name %q", site.Name)
		}
		seen[site.Name] = true

		if len(site.URLs) == 0 {
			return Errorf("site %q has no urls", site.Name)
		}

		for _, u := range site.URLs {
			if u.URL == "" {
				return Errorf("site %q has a url entry with no url", site.Name)
			}
			if strings.HasPrefix(u.URL, "http://") || strings.HasPrefix(u.URL, "https://") {
				return Errorf("do not specify protocol in url: %q", u.URL)
			}
			if len(u.Tests) == 0 {
				return Errorf("url %q has no tests", u.URL)
			}
			for _, test := range u.Tests {
				if test.Action == "" {
					return Errorf("url %q declares a test with no action", u.URL)
				}
				if len(test.Protocols) == 0 {
					return Errorf("url %q declares a test with an empty protocol set", u.URL)
				}
				if test.Action == ActionReturnString && site.ExpectedString == "" {
					return Errorf(`site %q: "return string" check specified but "expected string" is not defined`, site.Name)
				}
			}
		}
	}
	return nil
}
