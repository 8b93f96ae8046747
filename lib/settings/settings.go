// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

// Package settings maps the global descriptor tables onto a
// human-edited YAML file. The same descriptors that persist a global
// into the savegame drive its appearance here; fields flagged
// NotInConfig stay save-only.
package settings

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/meridian-sim/meridian/lib/saveload"
)

// Export writes the table's config-visible globals as a YAML mapping,
// in descriptor order. Keys are the registered global names.
func Export(w io.Writer, table *saveload.Table) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, field := range table.ConfigFields() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: field.Name()}
		value := &yaml.Node{}
		if err := value.Encode(field.ConfigValue()); err != nil {
			return fmt.Errorf("encoding setting %q: %w", field.Name(), err)
		}
		root.Content = append(root.Content, key, value)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(root); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return encoder.Close()
}

// Import reads a YAML mapping and stores every recognized key into
// its global. Unknown keys are ignored so a settings file written by
// a newer build still loads; a value of the wrong shape is an error.
func Import(r io.Reader, table *saveload.Table) error {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parsing settings: %w", err)
	}
	for _, field := range table.ConfigFields() {
		value, present := raw[field.Name()]
		if !present {
			continue
		}
		if err := field.SetConfigValue(value); err != nil {
			return err
		}
	}
	return nil
}
