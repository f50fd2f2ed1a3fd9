// Package message renders the annotations the merger posts on changes.
package message

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
)

type Ref string

const (
	AtomicReviewDetected  Ref = "atomic_review_detected"
	AtomicReviewsSameRepo Ref = "atomic_reviews_same_repo"
	CantMerge             Ref = "cant_merge"
)

var refs = []Ref{AtomicReviewDetected, AtomicReviewsSameRepo, CantMerge}

//go:embed defaults/*.tmpl
var defaults embed.FS

// Data is what every template is executed against.
type Data struct {
	Change      *domain.Change
	Group       []*domain.Change
	Verdict     *domain.GroupVerdict
	Unmergeable []domain.ChangeRef
}

type Templates struct {
	set map[Ref]*template.Template
}

// Load parses the three templates. A missing or empty path in overrides
// selects the built-in text for that reference.
func Load(overrides map[Ref]string) (*Templates, error) {
	t := &Templates{set: make(map[Ref]*template.Template, len(refs))}
	for _, ref := range refs {
		text, err := readTemplate(ref, overrides[ref])
		if err != nil {
			return nil, err
		}
		tmpl, err := template.New(string(ref)).Funcs(sprig.TxtFuncMap()).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", ref, err)
		}
		t.set[ref] = tmpl
	}
	return t, nil
}

func readTemplate(ref Ref, path string) (string, error) {
	if path == "" {
		raw, err := defaults.ReadFile("defaults/" + string(ref) + ".tmpl")
		if err != nil {
			return "", fmt.Errorf("read default template %s: %w", ref, err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %s from %s: %w", ref, path, err)
	}
	return string(raw), nil
}

func (t *Templates) Render(ref Ref, data *Data) (string, error) {
	tmpl, ok := t.set[ref]
	if !ok {
		return "", fmt.Errorf("unknown template %q", ref)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", ref, err)
	}
	return buf.String(), nil
}
