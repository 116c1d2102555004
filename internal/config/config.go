package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/containeroo/resolver"
	"gopkg.in/yaml.v3"

	"github.com/gi8lino/lptriage/internal/launchpad"
	"github.com/gi8lino/lptriage/internal/templates"
)

// DefaultFilename names the workbook after the access mode and the current hour.
const DefaultFilename = `stx_lp_workbook-{{ .Mode }}-{{ .Time | date "2006-01-02-15" }}.xlsx`

const maxSheetName = 31

// Default returns the reference configuration for the StarlingX project.
func Default() ReportConfig {
	return ReportConfig{
		Project: "starlingx",
		Statuses: []string{
			"New",
			"Incomplete",
			"Triaged",
			"Opinion",
			"Confirmed",
			"In Progress",
		},
		Tags: []string{
			"stx.2.0",
			"stx.distro.openstack",
			"stx.distro.other",
			"stx.containers",
			"stx.networking",
			"stx.upstream",
		},
		OutputDir:         ".",
		Filename:          DefaultFilename,
		IncludeDuplicates: true,
		Launchpad: LaunchpadConfig{
			APIURL:            launchpad.DefaultAPIURL,
			WebURL:            launchpad.DefaultWebURL,
			ConsumerKey:       "authorize",
			AnonymousConsumer: "anonymously",
			Timeout:           60 * time.Second,
		},
	}
}

// LoadConfig reads the YAML file at path over Default. An empty path returns Default.
// Values may reference env:VAR or file:/path and are resolved after decoding.
func LoadConfig(path string) (ReportConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	if err := resolveReferences(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolveReferences replaces env:/file: references in string values.
func resolveReferences(cfg *ReportConfig) error {
	fields := map[string]*string{
		"project":                     &cfg.Project,
		"outputDir":                   &cfg.OutputDir,
		"launchpad.apiURL":            &cfg.Launchpad.APIURL,
		"launchpad.webURL":            &cfg.Launchpad.WebURL,
		"launchpad.consumerKey":       &cfg.Launchpad.ConsumerKey,
		"launchpad.anonymousConsumer": &cfg.Launchpad.AnonymousConsumer,
		"launchpad.cacheDir":          &cfg.Launchpad.CacheDir,
	}
	for name, ptr := range fields {
		v, err := resolver.ResolveVariable(*ptr)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		*ptr = v
	}
	return nil
}

// ValidateConfig checks the consistency and correctness of a report config.
func ValidateConfig(cfg *ReportConfig) error {
	var errs []string

	if strings.TrimSpace(cfg.Project) == "" {
		errs = append(errs, "project is required")
	}
	if len(cfg.Statuses) == 0 {
		errs = append(errs, "statuses must not be empty")
	}
	for i, s := range cfg.Statuses {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Sprintf("statuses[%d]: must not be empty", i))
		}
	}

	if len(cfg.Tags) == 0 {
		errs = append(errs, "tags must not be empty")
	}
	seen := make(map[string]int, len(cfg.Tags))
	for i, tag := range cfg.Tags {
		label := fmt.Sprintf("tags[%d]", i)
		// sheet names compare case-insensitively
		key := strings.ToLower(tag)
		if first, dup := seen[key]; dup {
			errs = append(errs, fmt.Sprintf("%s: duplicate of tags[%d] (%q)", label, first, tag))
			continue
		}
		seen[key] = i
		if msg := checkSheetName(tag); msg != "" {
			errs = append(errs, fmt.Sprintf("%s: %s", label, msg))
		}
	}

	if strings.TrimSpace(cfg.OutputDir) == "" {
		errs = append(errs, "outputDir is required")
	}
	if _, err := templates.ParseFilename(cfg.Filename); err != nil {
		errs = append(errs, fmt.Sprintf("filename: %v", err))
	} else if !strings.HasSuffix(cfg.Filename, ".xlsx") {
		errs = append(errs, `filename: must end with ".xlsx"`)
	}

	lp := cfg.Launchpad
	if msg := checkHTTPURL(lp.APIURL); msg != "" {
		errs = append(errs, "launchpad.apiURL: "+msg)
	}
	if msg := checkHTTPURL(lp.WebURL); msg != "" {
		errs = append(errs, "launchpad.webURL: "+msg)
	}
	if strings.TrimSpace(lp.ConsumerKey) == "" {
		errs = append(errs, "launchpad.consumerKey is required")
	}
	if strings.TrimSpace(lp.AnonymousConsumer) == "" {
		errs = append(errs, "launchpad.anonymousConsumer is required")
	}
	if lp.Timeout <= 0 {
		errs = append(errs, "launchpad.timeout must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	// url.ResolveReference drops the last path segment without a trailing slash
	cfg.Launchpad.APIURL = withTrailingSlash(lp.APIURL)
	cfg.Launchpad.WebURL = withTrailingSlash(lp.WebURL)

	return nil
}

// checkSheetName returns why name cannot be used as a worksheet name, or "".
func checkSheetName(name string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "must not be empty"
	case len([]rune(name)) > maxSheetName:
		return fmt.Sprintf("%q exceeds %d characters", name, maxSheetName)
	case strings.ContainsAny(name, `:\/?*[]`):
		return fmt.Sprintf(`%q must not contain any of : \ / ? * [ ]`, name)
	case strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'"):
		return fmt.Sprintf("%q must not start or end with an apostrophe", name)
	}
	return ""
}

// checkHTTPURL returns why raw is not an absolute http(s) URL, or "".
func checkHTTPURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Sprintf("%q must be an absolute http(s) URL", raw)
	}
	return ""
}

func withTrailingSlash(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
