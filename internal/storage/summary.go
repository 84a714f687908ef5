package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/seenimoa/graintel/pkg/models"
)

// SaveSummary writes the backtest summary as indented JSON. An empty summary
// is written too, so the report can tell "no data yet" from "never run".
func SaveSummary(path string, s models.BacktestSummary) error {
	if s.ByCommodity == nil {
		s.ByCommodity = map[models.Commodity]models.BacktestStats{}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	err := writeFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(s)
	})
	if err != nil {
		return fmt.Errorf("save backtest summary: %w", err)
	}
	return nil
}

// LoadSummary reads a backtest summary. A missing file yields ErrNotFound.
func LoadSummary(path string) (models.BacktestSummary, error) {
	var s models.BacktestSummary
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode %s: %w", path, err)
	}
	if s.ByCommodity == nil {
		s.ByCommodity = map[models.Commodity]models.BacktestStats{}
	}
	return s, nil
}
