package config

import "time"

// ReportConfig describes what to query and how the workbook is laid out.
type ReportConfig struct {
	Project           string          `yaml:"project"`
	Statuses          []string        `yaml:"statuses"`          // bug task statuses to include
	Tags              []string        `yaml:"tags"`              // one sheet per tag, in order
	OutputDir         string          `yaml:"outputDir"`         // workbook directory
	Filename          string          `yaml:"filename"`          // text/template with sprig functions
	IncludeDuplicates bool            `yaml:"includeDuplicates"` // keep bugs marked as duplicates
	Launchpad         LaunchpadConfig `yaml:"launchpad"`
}

// LaunchpadConfig holds the web service endpoints and OAuth consumer names.
type LaunchpadConfig struct {
	APIURL            string        `yaml:"apiURL"`
	WebURL            string        `yaml:"webURL"`
	ConsumerKey       string        `yaml:"consumerKey"`       // consumer for authorized access
	AnonymousConsumer string        `yaml:"anonymousConsumer"` // consumer for anonymous access
	CacheDir          string        `yaml:"cacheDir"`          // empty = per-user temp dir
	Timeout           time.Duration `yaml:"timeout"`
	SkipTLSVerify     bool          `yaml:"skipTLSVerify"`
}
