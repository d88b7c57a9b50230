package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ericfisherdev/credreview/internal/csvcodec"
	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// writeExport serializes records with the source dialect and writes one file
// per part. Files hold plaintext secrets and are created owner-only.
func writeExport(path string, records []model.Record, dialect *model.Dialect, partLimit int, logger *slog.Logger) error {
	export := csvcodec.Serialize(records, dialect)
	if export.Diverged {
		logger.Warn("export no longer matches the source rows", "records", len(records))
	}

	parts := export.Parts(partLimit)
	names := csvcodec.PartNames(path, len(parts))

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}

	for i, part := range parts {
		if err := os.WriteFile(names[i], []byte(part), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", names[i], err)
		}
		logger.Info("wrote export", "path", names[i], "bytes", len(part))
	}
	return nil
}
