package flag

import (
	"errors"
	"io"

	"github.com/containeroo/tinyflags"
	"github.com/gi8lino/lptriage/internal/logging"
)

// AccessMode selects how Launchpad is accessed.
type AccessMode int

const (
	AccessAsk        AccessMode = iota // ask the user at startup
	AccessAnonymous                    // read-only anonymous consumer
	AccessAuthorized                   // OAuth token approved by the user
)

// Config aggregates CLI flags after parsing.
type Config struct {
	Config    string            // Path to config file; empty = built-in defaults
	OutputDir string            // Overrides outputDir from the config file
	Project   string            // Overrides project from the config file
	CacheDir  string            // Overrides launchpad.cacheDir from the config file
	Access    AccessMode        // Access mode; AccessAsk prompts
	Debug     bool              // Enables debug logging
	LogFormat logging.LogFormat // Log output format (text or json)
}

// ParseArgs parses CLI args into Config, handling version/help flags.
func ParseArgs(version string, args []string, out io.Writer, getEnv func(string) string) (Config, error) {
	var cfg Config
	tf := tinyflags.NewFlagSet("lptriage", tinyflags.ContinueOnError)
	tf.Version(version)
	tf.SetGetEnvFn(getEnv)
	tf.EnvPrefix("LPTRIAGE")
	tf.SetOutput(out)

	// Report
	tf.StringVar(&cfg.Config, "config", "", "Path to config file (defaults built in)").
		Placeholder("FILE").
		Value()
	tf.StringVar(&cfg.OutputDir, "output-dir", "", "Directory the workbook is written to").
		Placeholder("DIR").
		Value()
	tf.StringVar(&cfg.Project, "project", "", "Launchpad project to query").
		Placeholder("NAME").
		Value()

	// Launchpad access
	var anonymous, authorized bool
	tf.BoolVar(&anonymous, "anonymous", false, "Access Launchpad anonymously without asking").Value()
	tf.BoolVar(&authorized, "authorized", false, "Authorize a Launchpad token without asking").Value()
	tf.StringVar(&cfg.CacheDir, "cache-dir", "", "Directory for the temporary credential file").
		Placeholder("DIR").
		Value()

	// Logging
	tf.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging").Value()
	logFormat := tf.String("log-format", "text", "Log format").Choices("text", "json").Short("l").Value()

	// Parse
	if err := tf.Parse(args); err != nil {
		return Config{}, err
	}

	// Post-parse
	cfg.LogFormat = logging.LogFormat(*logFormat)

	switch {
	case anonymous && authorized:
		return Config{}, errors.New("--anonymous and --authorized are mutually exclusive")
	case anonymous:
		cfg.Access = AccessAnonymous
	case authorized:
		cfg.Access = AccessAuthorized
	}

	return cfg, nil
}
