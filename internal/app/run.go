package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gi8lino/lptriage/internal/config"
	"github.com/gi8lino/lptriage/internal/flag"
	"github.com/gi8lino/lptriage/internal/launchpad"
	"github.com/gi8lino/lptriage/internal/logging"
	"github.com/gi8lino/lptriage/internal/prompt"
	"github.com/gi8lino/lptriage/internal/report"
	"github.com/gi8lino/lptriage/internal/templates"
	"github.com/gi8lino/lptriage/internal/utils"

	"github.com/containeroo/tinyflags"
	"github.com/joho/godotenv"
)

const (
	modeAnonymous  = "anon_"
	modeAuthorized = "authorized_"
)

// Run starts lptriage and writes one triage workbook.
func Run(ctx context.Context, version string, args []string, in io.Reader, out io.Writer, getEnv func(string) string) error {
	// Create a new context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A missing .env file is fine
	_ = godotenv.Load()

	// Parse command-line flags
	flags, err := flag.ParseArgs(version, args, out, getEnv)
	if err != nil {
		if tinyflags.IsHelpRequested(err) || tinyflags.IsVersionRequested(err) {
			fmt.Fprint(out, err.Error()) // nolint:errcheck
			return nil
		}
		return fmt.Errorf("parsing error: %w", err)
	}

	// Setup logger
	logger := logging.SetupLogger(flags.LogFormat, flags.Debug, out)

	logger.Info("Starting lptriage",
		"version", version,
	)

	// Load config
	cfg, err := config.LoadConfig(flags.Config)
	if err != nil {
		return fmt.Errorf("loading config error: %w", err)
	}
	applyOverrides(&cfg, flags)

	// Validate config
	if err := config.ValidateConfig(&cfg); err != nil {
		return fmt.Errorf("validating config error: %w", err)
	}

	// Choose access mode
	asker := &prompt.Asker{In: in, Out: out}
	access := flags.Access
	if access == flag.AccessAsk {
		useCreds, err := asker.Confirm("Use Credentials? (N for Anonymous)", prompt.DefaultNo)
		if err != nil {
			return fmt.Errorf("prompt error: %w", err)
		}
		access = flag.AccessAnonymous
		if useCreds {
			access = flag.AccessAuthorized
		}
	}

	// Setup authentication
	var auth launchpad.AuthFunc
	var mode string
	switch access {
	case flag.AccessAuthorized:
		store := launchpad.CredentialStore{Dir: cfg.Launchpad.CacheDir}
		if store.Dir == "" {
			store.Dir = launchpad.DefaultCacheDir(getEnv("USER"))
		}
		defer func() {
			if err := store.Remove(); err != nil {
				logger.Debug("removing credential file failed", "path", store.Path(), "error", err)
			}
		}()

		creds, err := login(ctx, cfg.Launchpad, store, asker, out, getEnv)
		if err != nil {
			return fmt.Errorf("launchpad login error: %w", err)
		}
		auth = launchpad.NewOAuthAuth(creds)
		mode = modeAuthorized
	default:
		auth = launchpad.NewAnonymousAuth(cfg.Launchpad.AnonymousConsumer)
		mode = modeAnonymous
	}

	logger.Debug("launchpad auth",
		"mode", mode,
		"header", utils.ObfuscateHeader(utils.GetAuthorizationHeader(auth)),
	)

	// Setup launchpad client
	apiURL, err := url.Parse(cfg.Launchpad.APIURL)
	if err != nil {
		return fmt.Errorf("launchpad api url error: %w", err)
	}
	c := launchpad.NewClient(launchpad.ClientConfig{
		APIURL:        apiURL,
		Timeout:       cfg.Launchpad.Timeout,
		SkipTLSVerify: cfg.Launchpad.SkipTLSVerify,
		UserAgent:     "lptriage/" + version,
	}, auth)

	// Build the workbook; failures from here on are reported, not fatal
	sum, path, err := generate(ctx, cfg, c, mode, logger)
	if err != nil {
		logger.Error("report generation failed", "error", err)
		return nil
	}

	sheets := make([]string, 0, len(sum.Sheets))
	for _, s := range sum.Sheets {
		sheets = append(sheets, fmt.Sprintf("%s=%d", s.Tag, s.Rows))
	}
	logger.Info("workbook written",
		"path", path,
		"tasks", sum.Tasks,
		"rows", sum.Rows,
		"sheets", strings.Join(sheets, ","),
	)

	return nil
}

// applyOverrides copies non-empty flag values over the loaded config.
func applyOverrides(cfg *config.ReportConfig, flags flag.Config) {
	if flags.Project != "" {
		cfg.Project = flags.Project
	}
	if flags.OutputDir != "" {
		cfg.OutputDir = flags.OutputDir
	}
	if flags.CacheDir != "" {
		cfg.Launchpad.CacheDir = flags.CacheDir
	}
}

// login runs the interactive token authorization and stores the credential.
func login(ctx context.Context, lp config.LaunchpadConfig, store launchpad.CredentialStore, asker *prompt.Asker, out io.Writer, getEnv func(string) string) (launchpad.Credentials, error) {
	webURL, err := url.Parse(lp.WebURL)
	if err != nil {
		return launchpad.Credentials{}, fmt.Errorf("parse web url: %w", err)
	}

	authorizer := launchpad.NewAuthorizer(webURL, lp.ConsumerKey, lp.Timeout, lp.SkipTLSVerify, getEnv)
	authorizer.Confirm = func(authorizeURL string) (bool, error) {
		fmt.Fprintf(out, "Open the following page in a browser and authorize access:\n\n  %s\n\n", authorizeURL) // nolint:errcheck
		return asker.Confirm("Access authorized?", prompt.DefaultYes)
	}

	return launchpad.LoginWith(ctx, store, authorizer)
}

// generate looks up the project and writes the workbook into cfg.OutputDir.
func generate(ctx context.Context, cfg config.ReportConfig, c *launchpad.Client, mode string, logger *slog.Logger) (report.Summary, string, error) {
	project, err := c.GetProject(ctx, cfg.Project)
	if err != nil {
		return report.Summary{}, "", err
	}
	logger.Info("querying project",
		"project", project.Name,
		"title", project.DisplayName,
		"statuses", strings.Join(cfg.Statuses, ","),
	)

	tmpl, err := templates.ParseFilename(cfg.Filename)
	if err != nil {
		return report.Summary{}, "", err
	}
	name, err := templates.RenderFilename(tmpl, templates.FilenameData{
		Mode:    mode,
		Project: project.Name,
		Time:    time.Now(),
	})
	if err != nil {
		return report.Summary{}, "", err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return report.Summary{}, "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(cfg.OutputDir, name)

	b := report.NewBuilder(cfg, c, logger)
	sum, err := report.Generate(ctx, b, report.NewExcelWorkbook(path))
	return sum, path, err
}
