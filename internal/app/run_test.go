package app_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gi8lino/lptriage/internal/app"
	"github.com/gi8lino/lptriage/internal/launchpad"
	"github.com/gi8lino/lptriage/internal/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// fakeLaunchpad serves a project with two bug tasks and the OAuth token endpoints.
type fakeLaunchpad struct {
	*httptest.Server

	mu       sync.Mutex
	authSeen []string
	failTask bool
}

func newFakeLaunchpad(t *testing.T) *fakeLaunchpad {
	t.Helper()

	f := &fakeLaunchpad{}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeLaunchpad) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.authSeen = append(f.authSeen, r.Header.Get("Authorization"))
	failTask := f.failTask
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/+request-token":
		fmt.Fprint(w, "oauth_token=rt&oauth_token_secret=rs") // nolint:errcheck
	case r.URL.Path == "/+access-token":
		fmt.Fprint(w, "oauth_token=at&oauth_token_secret=as") // nolint:errcheck
	case r.URL.Path == "/devel/starlingx" && r.URL.Query().Get("ws.op") == "searchTasks":
		if failTask {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"total_size":2,"start":0,"entries":[%s,%s]}`, // nolint:errcheck
			f.task(1, "Triaged"), f.task(2, "New"))
	case r.URL.Path == "/devel/starlingx":
		fmt.Fprint(w, `{"name":"starlingx","display_name":"StarlingX"}`) // nolint:errcheck
	case r.URL.Path == "/devel/bugs/1":
		fmt.Fprint(w, `{"id":1,"title":"first","tags":["stx.2.0","stx.networking"],"private":false,"security_related":false,"date_last_updated":"2019-05-01T10:00:00Z"}`) // nolint:errcheck
	case r.URL.Path == "/devel/bugs/2":
		fmt.Fprint(w, `{"id":2,"title":"second","tags":["stx.networking"],"private":false,"security_related":false}`) // nolint:errcheck
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeLaunchpad) task(id int, status string) string {
	return fmt.Sprintf(`{"title":"Bug #%[2]d","importance":"High","status":%[3]q,"web_link":"https://bugs.launchpad.net/starlingx/+bug/%[2]d","bug_link":"%[1]s/devel/bugs/%[2]d","owner_link":"%[1]s/devel/~reporter","assignee_link":null,"date_created":"2019-04-01T08:30:00Z"}`,
		f.URL, id, status)
}

func (f *fakeLaunchpad) headers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.authSeen...)
}

// writeConfig writes a report config pointing at f and returns its path and the output dir.
func writeConfig(t *testing.T, f *fakeLaunchpad) (string, string) {
	t.Helper()

	tmp := t.TempDir()
	outDir := filepath.Join(tmp, "out")
	cfgPath := filepath.Join(tmp, "config.yaml")
	testutils.MustWriteFile(t, cfgPath, fmt.Sprintf(`
project: starlingx
statuses: [New, Triaged]
tags: [stx.2.0, stx.networking]
outputDir: %s
launchpad:
  apiURL: %s/devel/
  webURL: %s/
  timeout: 5s
`, outDir, f.URL, f.URL))
	return cfgPath, outDir
}

// onlyWorkbook returns the single file written to dir.
func onlyWorkbook(t *testing.T, dir string) string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return filepath.Join(dir, entries[0].Name())
}

func TestRun(t *testing.T) {
	t.Parallel()

	dummyEnv := func(string) string { return "" }

	t.Run("Anonymous run writes one sheet per tag", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
		defer cancel()

		lp := newFakeLaunchpad(t)
		cfgPath, outDir := writeConfig(t, lp)

		var out bytes.Buffer
		err := app.Run(ctx, "v1", []string{"--config=" + cfgPath, "--anonymous"}, strings.NewReader(""), &out, dummyEnv)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "workbook written")

		path := onlyWorkbook(t, outDir)
		assert.True(t, strings.HasPrefix(filepath.Base(path), "stx_lp_workbook-anon_-"))

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer f.Close() // nolint:errcheck

		assert.Equal(t, []string{"stx.2.0", "stx.networking"}, f.GetSheetList())

		rows, err := f.GetRows("stx.2.0")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Bug ID Number", rows[0][0])
		assert.Equal(t, "1", rows[1][0])

		rows, err = f.GetRows("stx.networking")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "1", rows[1][0])
		assert.Equal(t, "2", rows[2][0])

		for _, h := range lp.headers() {
			assert.Contains(t, h, `oauth_consumer_key="anonymously"`)
		}
	})

	t.Run("Prompt answer selects anonymous mode", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
		defer cancel()

		lp := newFakeLaunchpad(t)
		cfgPath, outDir := writeConfig(t, lp)

		var out bytes.Buffer
		err := app.Run(ctx, "v1", []string{"--config=" + cfgPath}, strings.NewReader("\n"), &out, dummyEnv)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Use Credentials? (N for Anonymous) [y/N] ")

		path := onlyWorkbook(t, outDir)
		assert.Contains(t, filepath.Base(path), "-anon_-")
	})

	t.Run("Authorized run uses token and removes credential file", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
		defer cancel()

		lp := newFakeLaunchpad(t)
		cfgPath, outDir := writeConfig(t, lp)
		cacheDir := t.TempDir()
		env := func(k string) string {
			if k == "DISPLAY" {
				return ":0"
			}
			return ""
		}

		var out bytes.Buffer
		args := []string{"--config=" + cfgPath, "--cache-dir=" + cacheDir}
		err := app.Run(ctx, "v1", args, strings.NewReader("y\ny\n"), &out, env)
		require.NoError(t, err)

		assert.Contains(t, out.String(), "+authorize-token?oauth_token=rt")
		path := onlyWorkbook(t, outDir)
		assert.Contains(t, filepath.Base(path), "-authorized_-")
		assert.NoFileExists(t, filepath.Join(cacheDir, "auth.txt"))

		headers := lp.headers()
		require.NotEmpty(t, headers)
		assert.Contains(t, headers[len(headers)-1], `oauth_token="at"`)
	})

	t.Run("Authorized run without display fails", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
		defer cancel()

		lp := newFakeLaunchpad(t)
		cfgPath, outDir := writeConfig(t, lp)

		var out bytes.Buffer
		args := []string{"--config=" + cfgPath, "--authorized", "--cache-dir=" + t.TempDir()}
		err := app.Run(ctx, "v1", args, strings.NewReader(""), &out, dummyEnv)
		require.Error(t, err)
		assert.ErrorIs(t, err, launchpad.ErrNoDisplay)
		assert.NoDirExists(t, outDir)
	})

	t.Run("Declined authorization fails", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
		defer cancel()

		lp := newFakeLaunchpad(t)
		cfgPath, _ := writeConfig(t, lp)
		env := func(k string) string {
			if k == "DISPLAY" {
				return ":0"
			}
			return ""
		}

		var out bytes.Buffer
		args := []string{"--config=" + cfgPath, "--authorized", "--cache-dir=" + t.TempDir()}
		err := app.Run(ctx, "v1", args, strings.NewReader("n\n"), &out, env)
		require.Error(t, err)
		assert.ErrorIs(t, err, launchpad.ErrAuthorizationDeclined)
	})

	t.Run("Query failure is logged and not fatal", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
		defer cancel()

		lp := newFakeLaunchpad(t)
		lp.failTask = true
		cfgPath, outDir := writeConfig(t, lp)

		var out bytes.Buffer
		err := app.Run(ctx, "v1", []string{"--config=" + cfgPath, "--anonymous"}, strings.NewReader(""), &out, dummyEnv)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "report generation failed")
		assert.Contains(t, out.String(), "launchpad error: 500")

		// no sheet was added, so no file is left behind
		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Help requested prints usage and returns nil", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		err := app.Run(t.Context(), "v1.2.3", []string{"--help"}, strings.NewReader(""), &out, dummyEnv)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Usage")
	})

	t.Run("Version requested prints version and returns nil", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		err := app.Run(t.Context(), "v9.8.7", []string{"--version"}, strings.NewReader(""), &out, dummyEnv)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "v9.8.7")
	})

	t.Run("Unknown flag surfaces parsing error", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		err := app.Run(t.Context(), "vX", []string{"--totally-unknown"}, strings.NewReader(""), &out, dummyEnv)
		require.Error(t, err)
		assert.EqualError(t, err, "parsing error: unknown flag: --totally-unknown")
	})

	t.Run("Missing config file surfaces load error", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		err := app.Run(t.Context(), "v1", []string{"--config=/nope/does-not-exist.yaml"}, strings.NewReader(""), &out, dummyEnv)
		require.Error(t, err)
		assert.EqualError(t, err, "loading config error: read config: open /nope/does-not-exist.yaml: no such file or directory")
	})

	t.Run("Invalid config surfaces validation error", func(t *testing.T) {
		t.Parallel()

		cfgPath := filepath.Join(t.TempDir(), "config.yaml")
		testutils.MustWriteFile(t, cfgPath, "tags: []\n")

		var out bytes.Buffer
		err := app.Run(t.Context(), "v1", []string{"--config=" + cfgPath, "--anonymous"}, strings.NewReader(""), &out, dummyEnv)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validating config error: config validation failed")
		assert.Contains(t, err.Error(), "tags must not be empty")
	})
}
