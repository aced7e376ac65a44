package store

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document accepted by Seed.
type SeedFile struct {
	Papers []Paper `yaml:"papers"`
}

// ReadSeed decodes a seed document.
func ReadSeed(r io.Reader) ([]Paper, error) {
	var f SeedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding seed: %w", err)
	}
	for i, p := range f.Papers {
		if p.ArxivID == "" {
			return nil, fmt.Errorf("seed paper %d: arxiv_id is required", i)
		}
	}
	return f.Papers, nil
}

// Seed upserts papers in order. A paper referenced before it appears is
// stored as a stub and completed when its own entry is reached.
func (db *DB) Seed(ctx context.Context, papers []Paper) (int, error) {
	for i, p := range papers {
		if err := db.UpsertPaper(ctx, p); err != nil {
			return i, err
		}
	}
	return len(papers), nil
}
