// Package render turns a computed report into terminal tables, an HTML chart page or JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"basegraph.app/qareport/internal/report"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatHTML  Format = "html"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatJSON, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or html)", s)
	}
}

// Report is everything a renderer needs about one report.
type Report struct {
	Title    string         `json:"title"`
	Buckets  report.Buckets `json:"buckets"`
	Stats    report.Stats   `json:"stats"`
	Warnings []string       `json:"warnings"`
}

func Write(w io.Writer, format Format, r Report) error {
	switch format {
	case FormatTable:
		return Text(w, r)
	case FormatJSON:
		return JSON(w, r)
	case FormatHTML:
		return HTML(w, r)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func JSON(w io.Writer, r Report) error {
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
