package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output selects how commands print their results.
type Output string

const (
	OutputText Output = "text"
	OutputJSON Output = "json"
	OutputYAML Output = "yaml"
)

// ParseOutput validates an --output flag value.
func ParseOutput(s string) (Output, error) {
	switch o := Output(strings.ToLower(strings.TrimSpace(s))); o {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputYAML:
		return o, nil
	}
	return "", fmt.Errorf("unknown output %q (want text, json or yaml)", s)
}

// Encode writes v to w as JSON or YAML. Text output is the caller's job.
func Encode(w io.Writer, o Output, v any) error {
	switch o {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("output %q is not a structured format", o)
}
