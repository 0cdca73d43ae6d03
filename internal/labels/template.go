package labels

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Harsh-BH/certqueue/internal/domain"
)

// LoadTemplate parses the first template found among paths.
func LoadTemplate(paths []string) (*template.Template, error) {
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("labels: read template %s: %w", p, err)
		}
		tmpl, err := template.New(filepath.Base(p)).Option("missingkey=zero").Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("labels: parse template %s: %w", p, err)
		}
		return tmpl, nil
	}
	return nil, fmt.Errorf("%w: checked %s", domain.ErrTemplateNotFound, strings.Join(paths, ", "))
}

// Lines executes tmpl for one label and returns its non-blank output lines.
func Lines(tmpl *template.Template, l Label) ([]string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, l); err != nil {
		return nil, fmt.Errorf("labels: execute template: %w", err)
	}

	var lines []string
	for _, line := range strings.Split(buf.String(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
