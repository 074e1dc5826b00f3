package timeline

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lysyi3m/milestone-timeline/app/sheet"
)

// Generator renders a dataset as an RSS 2.0 channel, one item per milestone.
type Generator struct {
	title   string
	baseURL string
	version string
}

func NewGenerator(title, baseURL, version string) *Generator {
	return &Generator{
		title:   title,
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
	}
}

func (g *Generator) Run(dataset *Dataset) (string, error) {
	if dataset == nil {
		return "", fmt.Errorf("dataset is nil")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", g.title, 4)
	g.writeElement(&buf, "link", g.baseURL+"/timeline", 4)
	g.writeElement(&buf, "description", fmt.Sprintf("%d regulatory milestones", len(dataset.Milestones)), 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(g.baseURL+"/timeline.xml")))

	lastBuildDate := time.Now().In(time.Local)
	if updated, err := time.ParseInLocation(dateLayout, dataset.LastUpdated, time.Local); err == nil {
		lastBuildDate = updated
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Milestone-Timeline/%s", g.version), 4)

	// Only dated milestones become items.
	for _, milestone := range dataset.Milestones {
		if milestone.Date == nil {
			continue
		}
		date, err := time.ParseInLocation(dateLayout, *milestone.Date, time.Local)
		if err != nil {
			continue
		}
		g.writeItem(&buf, milestone, date)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, milestone Milestone, date time.Time) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(milestone.ID))
	buf.WriteString("</guid>\n")

	title := milestone.Title
	if milestone.Subtitle != nil {
		title = fmt.Sprintf("%s: %s", title, *milestone.Subtitle)
	}
	g.writeElement(buf, "title", title, 6)
	g.writeElement(buf, "link", fmt.Sprintf("%s/timeline#%s", g.baseURL, milestone.ID), 6)
	g.writeElement(buf, "description", g.describe(milestone), 6)

	g.writeElement(buf, "pubDate", date.Format(time.RFC1123Z), 6)

	g.writeElement(buf, "category", milestone.Type, 6)
	g.writeElement(buf, "category", milestone.Status, 6)

	buf.WriteString("    </item>\n")
}

// describe flattens the milestone text and its detail panel into plain text.
func (g *Generator) describe(milestone Milestone) string {
	var lines []string
	if milestone.Description != nil {
		lines = append(lines, *milestone.Description)
	}

	if milestone.HasDetails() {
		if summary := milestone.Details.Summary(); summary != "" {
			lines = append(lines, summary)
		}
		for _, key := range milestone.Details.Keys() {
			if key == "summary" {
				continue
			}
			field, _ := milestone.Details.Get(key)
			lines = append(lines, fmt.Sprintf("%s: %s", humanizeKey(key), g.fieldText(field)))
		}
	}

	if len(lines) == 0 {
		return "No description available"
	}
	return strings.Join(lines, "\n")
}

func (g *Generator) fieldText(field Field) string {
	switch field.Kind {
	case ListField:
		return strings.Join(field.List, ", ")
	case GroupField:
		parts := make([]string, 0, field.Group.Len())
		for _, key := range field.Group.Keys() {
			nested, _ := field.Group.Get(key)
			parts = append(parts, fmt.Sprintf("%s: %s", humanizeKey(key), g.fieldText(nested)))
		}
		return strings.Join(parts, "; ")
	default:
		return sheet.CellString(field.Scalar)
	}
}

// humanizeKey turns a camelCase or dotted detail key into a heading:
// "keyDates" becomes "Key Dates".
func humanizeKey(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '.' || r == '_':
			b.WriteRune(' ')
			continue
		case unicode.IsUpper(r) && i > 0:
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.English).String(strings.TrimSpace(b.String()))
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
