package templates

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// FilenameData is passed to the output filename template.
type FilenameData struct {
	Mode    string    // "anon_" or "authorized_"
	Project string    // Launchpad project name
	Time    time.Time // Run start time
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// TemplateFuncMap returns sprig's text functions plus a filename-safe slug helper.
func TemplateFuncMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["slug"] = slug
	return fm
}

// ParseFilename parses a filename template.
func ParseFilename(text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty filename template")
	}
	tmpl, err := template.New("filename").
		Funcs(TemplateFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse filename template: %w", err)
	}
	return tmpl, nil
}

// RenderFilename executes tmpl and checks the result is a bare file name.
func RenderFilename(tmpl *template.Template, data FilenameData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render filename: %w", err)
	}
	name := strings.TrimSpace(buf.String())
	switch {
	case name == "":
		return "", fmt.Errorf("render filename: empty result")
	case filepath.Base(name) != name:
		return "", fmt.Errorf("render filename: %q must not contain a path", name)
	}
	return name, nil
}

// slug replaces runs of characters unsafe in file names with "_".
func slug(s string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(s, "_"), "_")
}
