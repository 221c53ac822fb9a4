package sqlite

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/searchcore/searchcore/pkg/models"
)

func writeJSONLines(path string, order []string, byTerm map[string]models.PostingsList) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	for _, term := range order {
		line, err := models.EncodeShardLine(term, byTerm[term])
		if err != nil {
			return err
		}
		if _, err := f.Write(line); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

func writeJSONFile(path string, data map[string]string) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
