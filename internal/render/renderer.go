// Package render turns a catalog snapshot plus a style config into the
// static storefront page. Rendering is deterministic: identical inputs
// always produce identical bytes, so the publisher can skip no-op writes
// and diffs on the published repo stay meaningful.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"path"
	"sort"

	"vitrina/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type Renderer interface {
	Render(products []*models.Product, style *models.StyleConfig) ([]byte, error)
}

type siteRenderer struct {
	tmpl *template.Template
}

func New() (Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &siteRenderer{tmpl: tmpl}, nil
}

type pageData struct {
	Style    *models.StyleConfig
	LogoFile string
	Groups   []groupSection
}

type groupSection struct {
	Name      string
	Subgroups []subgroupSection
}

type subgroupSection struct {
	Name     string
	Products []*models.Product
}

func (r *siteRenderer) Render(products []*models.Product, style *models.StyleConfig) ([]byte, error) {
	data := pageData{
		Style:  style,
		Groups: groupProducts(products),
	}
	if style.LogoURL != "" {
		data.LogoFile = "logo" + path.Ext(style.LogoURL)
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "site.html.tmpl", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// groupProducts arranges the snapshot into group/subgroup sections with a
// fixed order: sections alphabetically, products in snapshot order (the
// repository already sorts by display_order then id). No map iteration
// reaches the output.
func groupProducts(products []*models.Product) []groupSection {
	type key struct{ group, subgroup string }
	buckets := make(map[key][]*models.Product)
	for _, p := range products {
		k := key{p.Group, p.Subgroup}
		buckets[k] = append(buckets[k], p)
	}

	groupNames := make(map[string][]string)
	for k := range buckets {
		groupNames[k.group] = append(groupNames[k.group], k.subgroup)
	}

	groups := make([]string, 0, len(groupNames))
	for g := range groupNames {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	sections := make([]groupSection, 0, len(groups))
	for _, g := range groups {
		subs := groupNames[g]
		sort.Strings(subs)
		section := groupSection{Name: g}
		for _, sub := range subs {
			section.Subgroups = append(section.Subgroups, subgroupSection{
				Name:     sub,
				Products: buckets[key{g, sub}],
			})
		}
		sections = append(sections, section)
	}
	return sections
}
