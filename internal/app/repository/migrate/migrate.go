package migrate

import (
	"context"
	"fmt"
	"log"

	"smart-audio/internal/app/repository"
)

// Result reports what a migration copied
type Result struct {
	Copied  int
	Skipped int
}

// CopyRecords copies every record from src into dst. Records already present
// in dst are left untouched, so the copy can be re-run after a partial failure.
func CopyRecords(ctx context.Context, src, dst repository.RecordStore) (Result, error) {
	var res Result

	records, err := src.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load source records: %w", err)
	}

	existing, err := dst.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load destination records: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.ID] = true
	}

	merged := existing
	for _, r := range records {
		if seen[r.ID] {
			res.Skipped++
			continue
		}
		if r.ID == "" || r.Filename == "" {
			log.Printf("Validation failed for record %q: id or filename is empty", r.ID)
			res.Skipped++
			continue
		}
		seen[r.ID] = true
		merged = append(merged, r)
		res.Copied++
	}

	if res.Copied == 0 {
		return res, nil
	}
	if err := dst.Save(ctx, merged); err != nil {
		return Result{}, fmt.Errorf("failed to save destination records: %w", err)
	}
	return res, nil
}
