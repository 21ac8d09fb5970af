package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NewExportJSONTool writes a list of records to a JSON file under dir.
func NewExportJSONTool(dir string) Tool {
	return NewTool(
		"export_json",
		`Save a list of records as a JSON file. Arguments: {"records": [...], "file_name": "prices.json"}. Returns the written file path.`,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Records  []map[string]any `json:"records"`
				FileName string           `json:"file_name"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: records must be a list of objects: %w", err)
			}
			if len(in.Records) == 0 {
				return "", fmt.Errorf("no records to save")
			}
			if in.FileName == "" {
				in.FileName = "price_data.json"
			}

			name := unsafeFileChars.ReplaceAllString(in.FileName, "_")
			if !strings.HasSuffix(strings.ToLower(name), ".json") {
				name += ".json"
			}
			if dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return "", fmt.Errorf("create export directory: %w", err)
				}
			}
			path := filepath.Join(dir, name)

			data, err := json.MarshalIndent(in.Records, "", "  ")
			if err != nil {
				return "", fmt.Errorf("encode records: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return "", fmt.Errorf("write %s: %w", path, err)
			}
			return fmt.Sprintf("Saved %d records to %s", len(in.Records), path), nil
		})
}
