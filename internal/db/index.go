package db

import (
	"errors"
	"fmt"
)

// FilmIndex describes the FT index over film hashes: plain NUMERIC and TEXT
// attributes plus one FLOAT32 HNSW vector field compared by cosine distance.
type FilmIndex struct {
	Name   string
	Prefix string

	NumericFields []string
	TextFields    []string

	VectorField string
	Dim         int
	M           int // 0 keeps the server default
	EFConstruct int // 0 keeps the server default
}

// Validate reports the first problem that would make FT.CREATE fail.
func (idx *FilmIndex) Validate() error {
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q must match [a-zA-Z0-9_:-]+", idx.Name)
	}
	if idx.Prefix == "" {
		return errors.New("key prefix is required")
	}
	if idx.VectorField == "" {
		return errors.New("vector field is required")
	}
	if idx.Dim <= 0 {
		return fmt.Errorf("vector dimension must be positive, got %d", idx.Dim)
	}
	if idx.M < 0 || idx.EFConstruct < 0 {
		return errors.New("hnsw parameters must not be negative")
	}

	seen := map[string]bool{idx.VectorField: true}
	for _, group := range [][]string{idx.NumericFields, idx.TextFields} {
		for _, name := range group {
			if name == "" {
				return errors.New("empty field name")
			}
			if seen[name] {
				return fmt.Errorf("duplicate field %q", name)
			}
			seen[name] = true
		}
	}
	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != ':' && r != '-' {
			return false
		}
	}
	return true
}
