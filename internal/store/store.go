// Package store loads the declarative budget file.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/kakeibo/internal/logging"

	"gopkg.in/yaml.v3"
)

// DefaultBudgetsFile is looked up when no explicit file is configured.
const DefaultBudgetsFile = "budgets.yaml"

// BudgetEntry is one budget as written in budgets.yaml. Amounts and dates
// are kept as text and interpreted by the budget package.
type BudgetEntry struct {
	ID       string `yaml:"id,omitempty"`
	Category string `yaml:"category,omitempty"`
	Amount   string `yaml:"amount"`
	Period   string `yaml:"period"`
	Start    string `yaml:"start,omitempty"`
	End      string `yaml:"end,omitempty"`
}

// BudgetsConfig is the top-level document of budgets.yaml.
type BudgetsConfig struct {
	Budgets []BudgetEntry `yaml:"budgets"`
}

// BudgetStore reads budget declarations from YAML.
type BudgetStore struct {
	BudgetsFile string
	logger      logging.Logger
}

// NewBudgetStore creates a store for budgetsFile. An empty name means
// DefaultBudgetsFile.
func NewBudgetStore(budgetsFile string, logger logging.Logger) *BudgetStore {
	return &BudgetStore{
		BudgetsFile: budgetsFile,
		logger:      logging.OrDefault(logger),
	}
}

// FindConfigFile looks for a configuration file in standard locations
func (s *BudgetStore) FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".config", "kakeibo", filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

// LoadBudgets reads every budget entry. A missing file yields an empty
// slice, not an error.
func (s *BudgetStore) LoadBudgets() ([]BudgetEntry, error) {
	filename := s.BudgetsFile
	if filename == "" {
		filename = DefaultBudgetsFile
	}

	filePath, err := s.FindConfigFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("Budgets file not found", logging.Field{Key: logging.FieldFile, Value: filename})
			return []BudgetEntry{}, nil
		}
		return nil, fmt.Errorf("error resolving budgets file: %w", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading budgets file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing budgets file %s: %w", filePath, err)
	}

	if len(doc.Content) == 0 {
		return []BudgetEntry{}, nil
	}

	var entries []BudgetEntry
	if doc.Content[0].Kind == yaml.SequenceNode {
		// A bare list without the top-level key.
		err = doc.Decode(&entries)
	} else {
		var cfg BudgetsConfig
		err = doc.Decode(&cfg)
		entries = cfg.Budgets
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing budgets file %s: %w", filePath, err)
	}

	s.logger.Debug("Loaded budgets",
		logging.Field{Key: logging.FieldFile, Value: filePath},
		logging.Field{Key: logging.FieldCount, Value: len(entries)})
	return normalize(entries), nil
}

func normalize(entries []BudgetEntry) []BudgetEntry {
	out := make([]BudgetEntry, 0, len(entries))
	for _, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		e.Category = strings.TrimSpace(e.Category)
		e.Amount = strings.TrimSpace(e.Amount)
		e.Period = strings.ToLower(strings.TrimSpace(e.Period))
		e.Start = strings.TrimSpace(e.Start)
		e.End = strings.TrimSpace(e.End)
		out = append(out, e)
	}
	return out
}
