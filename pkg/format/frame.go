// Package format renders tabular results as JSON, YAML or a console table.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	JSON    Format = "json"
	YAML    Format = "yaml"
	Console Format = "console"
)

var Formats = []Format{JSON, YAML, Console}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q, expected one of json, yaml, console", s)
}

// Frame is a table of named columns.
type Frame struct {
	Columns []string
	Rows    [][]any
}

func NewFrame(columns ...string) *Frame {
	return &Frame{Columns: columns}
}

func (f *Frame) Append(values ...any) {
	f.Rows = append(f.Rows, values)
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

// Render writes the frame to w in the given format.
func Render(w io.Writer, format Format, f *Frame) error {
	switch format {
	case JSON:
		return renderJSON(w, f)
	case YAML:
		return renderYAML(w, f)
	default:
		_, err := fmt.Fprintln(w, Table(f))
		return err
	}
}

// renderJSON writes records keeping the column order.
func renderJSON(w io.Writer, f *Frame) error {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, row := range f.Rows {
		if i > 0 {
			compact.WriteByte(',')
		}
		compact.WriteByte('{')
		for j, col := range f.Columns {
			if j > 0 {
				compact.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return err
			}
			value, err := json.Marshal(finite(cell(row, j)))
			if err != nil {
				return fmt.Errorf("encoding %s: %w", col, err)
			}
			compact.Write(key)
			compact.WriteByte(':')
			compact.Write(value)
		}
		compact.WriteByte('}')
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func renderYAML(w io.Writer, f *Frame) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, row := range f.Rows {
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for j, col := range f.Columns {
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col}
			value := &yaml.Node{}
			if err := value.Encode(cell(row, j)); err != nil {
				return fmt.Errorf("encoding %s: %w", col, err)
			}
			mapping.Content = append(mapping.Content, key, value)
		}
		seq.Content = append(seq.Content, mapping)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return err
	}
	return enc.Close()
}

// finite replaces NaN and infinities, which JSON cannot carry, with null.
func finite(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

func cell(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

// Table renders the frame as a markdown table.
func Table(f *Frame) string {
	rows := make([][]string, len(f.Rows))
	for i, row := range f.Rows {
		rows[i] = make([]string, len(f.Columns))
		for j := range f.Columns {
			rows[i][j] = text(cell(row, j))
		}
	}

	return table.New().
		Border(lipgloss.MarkdownBorder()).
		BorderTop(false).
		BorderBottom(false).
		Headers(f.Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

func text(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return Number(v, NumberOpts{Precision: 2})
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
