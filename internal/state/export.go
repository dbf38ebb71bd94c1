package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

// DefaultExportFile is the conventional name for an exported roster.
const DefaultExportFile = "agent_configs.json"

// ExportSpecs writes specs to path as indented JSON.
func ExportSpecs(path string, specs []models.AgentSpec) error {
	if specs == nil {
		specs = []models.AgentSpec{}
	}
	data, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal specs: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write specs: %w", err)
	}
	return nil
}

// LoadSpecs reads a roster written by ExportSpecs.
func LoadSpecs(path string) ([]models.AgentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read specs: %w", err)
	}
	var specs []models.AgentSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse specs: %w", err)
	}
	return specs, nil
}
