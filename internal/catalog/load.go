package catalog

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Load opens the catalog at path, choosing the format by extension. An
// empty path selects the default catalog.
func Load(path string, logger *slog.Logger) (*Static, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		c   *Static
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case path == "":
		c, err = Default()
	case ext == ".yaml" || ext == ".yml":
		c, err = LoadYAMLFile(path)
	case ext == ".xlsx":
		c, err = LoadExcel(path, ExcelOptions{Logger: logger})
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	source := path
	if source == "" {
		source = "default"
	}
	logger.Info("catalog loaded",
		slog.String("source", source),
		slog.Int("items", c.Len()))
	return c, nil
}
