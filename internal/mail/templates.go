package mail

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"strings"
	texttemplate "text/template"

	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TemplateID names a mail template. Each template file defines the "subject",
// "text" and "html" blocks.
type TemplateID string

const (
	TemplateConfirmation TemplateID = "confirmation"
	TemplateWelcome      TemplateID = "welcome"
)

// Format selects the body flavour.
type Format int

const (
	FormatText Format = iota
	FormatHTML
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatHTML:
		return "html"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ContentType returns the MIME type of the body.
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=UTF-8"
	}
	return "text/plain; charset=UTF-8"
}

var (
	ErrUnknownTemplate = errors.New("unknown mail template")
	ErrUnknownFormat   = errors.New("unknown mail format")
)

// fallbackLanguage is used when a template has no translation for the
// requested language.
const fallbackLanguage = "en"

type templateKey struct {
	id   TemplateID
	lang string
}

type templatePair struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// Templates holds every embedded template, parsed once.
type Templates struct {
	byKey map[templateKey]templatePair
}

// Rendered is a template executed for one recipient.
type Rendered struct {
	Subject string
	Body    string
	Format  Format
}

// LoadTemplates parses the embedded templates. File names follow
// "<id>.<language>.tmpl".
func LoadTemplates() (*Templates, error) {
	return loadTemplates(templateFS, "templates/*.tmpl")
}

func loadTemplates(fsys fs.FS, pattern string) (*Templates, error) {
	names, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob templates: %w", err)
	}
	t := &Templates{byKey: make(map[templateKey]templatePair, len(names))}
	for _, name := range names {
		base := strings.TrimSuffix(path.Base(name), ".tmpl")
		id, lang, ok := strings.Cut(base, ".")
		if !ok || id == "" || lang == "" {
			return nil, fmt.Errorf("template %s: name must be <id>.<language>.tmpl", name)
		}
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		textTmpl, err := texttemplate.New(base).Option("missingkey=error").Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse text template %s: %w", name, err)
		}
		htmlTmpl, err := htmltemplate.New(base).Option("missingkey=error").Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse html template %s: %w", name, err)
		}
		t.byKey[templateKey{id: TemplateID(id), lang: lang}] = templatePair{text: textTmpl, html: htmlTmpl}
	}
	return t, nil
}

// Render executes template id for locale. Missing translations fall back to
// English; missing variables are an error.
func (t *Templates) Render(id TemplateID, locale language.Tag, format Format, vars map[string]any) (Rendered, error) {
	pair, ok := t.lookup(id, locale)
	if !ok {
		return Rendered{}, fmt.Errorf("%s: %w", id, ErrUnknownTemplate)
	}

	var subject bytes.Buffer
	if err := pair.text.ExecuteTemplate(&subject, "subject", vars); err != nil {
		return Rendered{}, fmt.Errorf("render %s subject: %w", id, err)
	}

	var body bytes.Buffer
	switch format {
	case FormatText:
		if err := pair.text.ExecuteTemplate(&body, "text", vars); err != nil {
			return Rendered{}, fmt.Errorf("render %s text body: %w", id, err)
		}
	case FormatHTML:
		if err := pair.html.ExecuteTemplate(&body, "html", vars); err != nil {
			return Rendered{}, fmt.Errorf("render %s html body: %w", id, err)
		}
	default:
		return Rendered{}, fmt.Errorf("%s: %w", format, ErrUnknownFormat)
	}

	return Rendered{
		Subject: strings.TrimSpace(subject.String()),
		Body:    body.String(),
		Format:  format,
	}, nil
}

func (t *Templates) lookup(id TemplateID, locale language.Tag) (templatePair, bool) {
	if base, conf := locale.Base(); conf != language.No {
		if pair, ok := t.byKey[templateKey{id: id, lang: base.String()}]; ok {
			return pair, true
		}
	}
	pair, ok := t.byKey[templateKey{id: id, lang: fallbackLanguage}]
	return pair, ok
}
