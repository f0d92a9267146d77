// # internal/pipeline/format.go
package pipeline

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"aura/internal/core/errors"
)

const (
	FormatPlain    = "plain"
	FormatMarkdown = "markdown"
	FormatXML      = "xml"
	FormatJSON     = "json"
)

// Formatter renders a built slice for consumption by an LLM prompt or a
// downstream tool.
type Formatter interface {
	Name() string
	Write(w io.Writer, s *Slice) error
}

func NewFormatter(name string) (Formatter, error) {
	switch name {
	case FormatPlain, "":
		return plainFormatter{}, nil
	case FormatMarkdown:
		return markdownFormatter{}, nil
	case FormatXML:
		return xmlFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	default:
		return nil, errors.Newf(errors.CodeNotSupported, "unknown output format %q", name)
	}
}

// FormatNames lists the supported formats in display order.
func FormatNames() []string {
	return []string{FormatPlain, FormatMarkdown, FormatXML, FormatJSON}
}

type plainFormatter struct{}

func (plainFormatter) Name() string { return FormatPlain }

func (plainFormatter) Write(w io.Writer, s *Slice) error {
	for _, item := range s.Items {
		header := "=== " + item.ID
		if item.Truncated {
			header += " (truncated)"
		}
		if _, err := fmt.Fprintf(w, "%s ===\n%s\n\n", header, item.Content); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "--- %d nodes, %d/%d tokens, strategy %s ---\n",
		s.Stats.Included, s.Stats.TotalTokens, s.Stats.Budget, s.Stats.Strategy)
	return err
}

type markdownFormatter struct{}

func (markdownFormatter) Name() string { return FormatMarkdown }

func (markdownFormatter) Write(w io.Writer, s *Slice) error {
	if _, err := fmt.Fprintf(w, "# Context: %s\n\nEntry points: %s\n\n",
		s.Repository, strings.Join(s.EntryPoints, ", ")); err != nil {
		return err
	}
	for _, item := range s.Items {
		suffix := ""
		if item.Truncated {
			suffix = " _(truncated)_"
		}
		lang := languageHint(item.Path)
		if _, err := fmt.Fprintf(w, "## `%s`%s\n\n```%s\n%s\n```\n\n",
			item.ID, suffix, lang, item.Content); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "---\n%d nodes, %d/%d tokens, strategy `%s`\n",
		s.Stats.Included, s.Stats.TotalTokens, s.Stats.Budget, s.Stats.Strategy)
	return err
}

func languageHint(path string) string {
	switch {
	case strings.HasSuffix(path, ".py"):
		return "python"
	case strings.HasSuffix(path, ".go"):
		return "go"
	default:
		return ""
	}
}

type xmlFormatter struct{}

func (xmlFormatter) Name() string { return FormatXML }

type xmlSlice struct {
	XMLName     xml.Name  `xml:"context"`
	Repository  string    `xml:"repository,attr"`
	EntryPoints []string  `xml:"entry_points>entry"`
	Items       []xmlItem `xml:"node"`
}

type xmlItem struct {
	ID        string `xml:"id,attr"`
	Type      string `xml:"type,attr"`
	Path      string `xml:"path,attr"`
	Truncated bool   `xml:"truncated,attr,omitempty"`
	Content   string `xml:",cdata"`
}

func (xmlFormatter) Write(w io.Writer, s *Slice) error {
	doc := xmlSlice{
		Repository:  s.Repository,
		EntryPoints: s.EntryPoints,
	}
	for _, item := range s.Items {
		doc.Items = append(doc.Items, xmlItem{
			ID:        item.ID,
			Type:      item.Type,
			Path:      item.Path,
			Truncated: item.Truncated,
			Content:   item.Content,
		})
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

type jsonFormatter struct{}

func (jsonFormatter) Name() string { return FormatJSON }

func (jsonFormatter) Write(w io.Writer, s *Slice) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
