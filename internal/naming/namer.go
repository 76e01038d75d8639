// Package naming builds the output file names for hue variants.
package naming

import (
	"errors"
	"fmt"
	"strings"
)

// Extension is the file extension of every generated variant.
const Extension = ".jpg"

// Template holds the parts combined with a step index to name a variant file.
//
// A Template is a value; copy it freely. Generate never mutates it.
type Template struct {
	BaseName string `json:"base_name" yaml:"base_name"`
	Prefix   string `json:"prefix" yaml:"prefix"`
	Version  string `json:"version" yaml:"version"`
}

// Generate returns the file name for the variant at index:
//
//	{BaseName}_v{Version}.{index}_{Prefix}.jpg
//
// For a fixed template the result is injective over index.
func (t Template) Generate(index int) string {
	return fmt.Sprintf("%s_v%s.%d_%s%s", t.BaseName, t.Version, index, t.Prefix, Extension)
}

// Validate rejects templates that would write outside the output directory
// or produce a name with no base.
func (t Template) Validate() error {
	if strings.TrimSpace(t.BaseName) == "" {
		return errors.New("base name is required")
	}
	for field, v := range map[string]string{"base name": t.BaseName, "prefix": t.Prefix, "version": t.Version} {
		if strings.ContainsAny(v, `/\`) || strings.ContainsRune(v, 0) {
			return fmt.Errorf("%s %q contains a path separator", field, v)
		}
	}
	return nil
}
