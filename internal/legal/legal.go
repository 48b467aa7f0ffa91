// Package legal renders the static legal pages from markdown.
package legal

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strings"

	apperrors "bucheron/internal/errors"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

//go:embed pages/*.md
var pagesFS embed.FS

var titles = map[string]string{
	"mentions-legales": "Mentions légales",
	"cgv":              "Conditions générales de vente",
	"confidentialite":  "Politique de confidentialité",
	"livraison":        "Livraison",
}

type Page struct {
	Slug  string
	Title string
	HTML  template.HTML
}

// Library serves the built-in pages, each of which can be replaced by the
// markdown stored in the site settings. Raw HTML in markdown is never emitted.
type Library struct {
	md       goldmark.Markdown
	defaults map[string]string
	logger   *zap.Logger
}

func NewLibrary(logger *zap.Logger) (*Library, error) {
	defaults := make(map[string]string, len(titles))
	for slug := range titles {
		b, err := pagesFS.ReadFile("pages/" + slug + ".md")
		if err != nil {
			return nil, fmt.Errorf("loading legal page %s: %w", slug, err)
		}
		defaults[slug] = string(b)
	}
	return &Library{
		md:       goldmark.New(goldmark.WithExtensions(extension.Table, extension.Linkify)),
		defaults: defaults,
		logger:   logger,
	}, nil
}

func (l *Library) Slugs() []string {
	out := make([]string, 0, len(titles))
	for slug := range titles {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

func Title(slug string) string {
	return titles[slug]
}

// Page renders slug, preferring overrides[slug] when it is not blank.
func (l *Library) Page(slug string, overrides map[string]string) (*Page, error) {
	src, ok := l.defaults[slug]
	if !ok {
		return nil, apperrors.NewNotFoundError("page introuvable")
	}
	if custom := strings.TrimSpace(overrides[slug]); custom != "" {
		src = custom
	}

	html, err := l.Render(src)
	if err != nil {
		l.logger.Error("rendering legal page", zap.String("page", slug), zap.Error(err))
		return nil, err
	}
	return &Page{Slug: slug, Title: titles[slug], HTML: html}, nil
}

func (l *Library) Render(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := l.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
