package alerts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/canchaya/canchaya/pkg/model"
)

// LoadYAML reads definitions from a document shaped like
//
//	alerts:
//	  - name: Ocupación alta
//	    metric_id: occupancy_pct
//	    condition: ">"
//	    threshold: 80
//	    severity: HIGH
//	    channels: [IN_APP, EMAIL]
//	    cooldown_minutes: 30
//
// Items without an explicit active key are imported active. Every item is
// validated; the first invalid one aborts the load.
func LoadYAML(r io.Reader) ([]model.AlertDefinition, error) {
	var doc struct {
		Alerts []yaml.Node `yaml:"alerts"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse alerts yaml: %w", err)
	}

	defs := make([]model.AlertDefinition, 0, len(doc.Alerts))
	for i := range doc.Alerts {
		node := &doc.Alerts[i]

		var def model.AlertDefinition
		if err := node.Decode(&def); err != nil {
			return nil, fmt.Errorf("alert %d (line %d): %w", i+1, node.Line, err)
		}
		if !hasKey(node, "active") {
			def.Active = true
		}

		created, err := model.NewAlertDefinition(def)
		if err != nil {
			return nil, fmt.Errorf("alert %d (line %d): %w", i+1, node.Line, err)
		}
		defs = append(defs, *created)
	}
	return defs, nil
}

// LoadYAMLFile opens path and calls LoadYAML.
func LoadYAMLFile(path string) ([]model.AlertDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open alerts file: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// Import saves defs into store and returns how many were written.
func Import(ctx context.Context, store DefinitionStore, defs []model.AlertDefinition) (int, error) {
	for i := range defs {
		if err := store.Save(ctx, &defs[i]); err != nil {
			return i, fmt.Errorf("save alert %q: %w", defs[i].Name, err)
		}
	}
	return len(defs), nil
}

func hasKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
