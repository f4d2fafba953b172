package modes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Report file names written by WriteReport.
const (
	ReportFile    = "routerModes.json"
	AvailableFile = "availableModes.json"
	UnknownFile   = "unknownModes.json"
)

// WriteReport writes the full report plus the available and unknown mode
// lists as indented JSON files under dir, creating it if needed. It returns
// the written paths.
func WriteReport(dir string, r Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("modes: write report: %w", err)
	}

	files := []struct {
		name string
		v    any
	}{
		{ReportFile, r},
		{AvailableFile, r.AvailableModes},
		{UnknownFile, r.Unknown},
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeJSON(path, f.v); err != nil {
			return paths, fmt.Errorf("modes: write report: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
