// Package display renders command results for people or for scripts.
package display

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"github.com/teranos/kgraph/errors"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// CheckFormat fails with InvalidStatement on an unknown format.
func CheckFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	}
	return errors.InvalidStatementf("unsupported format: %s (supported: text, json, yaml)", format)
}

// Structured writes v as indented JSON or YAML.
func Structured(w io.Writer, format string, v interface{}) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "failed to marshal YAML")
		}
		return enc.Close()
	}
	return errors.InvalidStatementf("format %s is not a structured format (use json or yaml)", format)
}

// Table renders rows under header.
func Table(w io.Writer, header []string, rows [][]string) error {
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, header)
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render table")
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
