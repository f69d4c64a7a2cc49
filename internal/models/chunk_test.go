// ABOUTME: Tests for ChunkConfig defaults and validation
// ABOUTME: Verifies overlap/size rules produce ConfigurationError
package models

import (
	"errors"
	"testing"
)

func TestChunkConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChunkConfig
		wantErr bool
		field   string
	}{
		{
			name:    "defaults are valid",
			cfg:     DefaultChunkConfig(),
			wantErr: false,
		},
		{
			name:    "zero overlap is valid",
			cfg:     ChunkConfig{ChunkSize: 10, Overlap: 0},
			wantErr: false,
		},
		{
			name:    "zero chunk size",
			cfg:     ChunkConfig{ChunkSize: 0, Overlap: 0},
			wantErr: true,
			field:   "chunk_size",
		},
		{
			name:    "negative overlap",
			cfg:     ChunkConfig{ChunkSize: 10, Overlap: -1},
			wantErr: true,
			field:   "chunk_overlap",
		},
		{
			name:    "overlap equal to size",
			cfg:     ChunkConfig{ChunkSize: 10, Overlap: 10},
			wantErr: true,
			field:   "chunk_overlap",
		},
		{
			name:    "overlap larger than size",
			cfg:     ChunkConfig{ChunkSize: 10, Overlap: 20},
			wantErr: true,
			field:   "chunk_overlap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestDefaultChunkConfig_CopiesSeparators(t *testing.T) {
	cfg := DefaultChunkConfig()
	cfg.Separators[0] = "mutated"

	if DefaultSeparators[0] != "\n\n" {
		t.Errorf("DefaultSeparators was mutated through DefaultChunkConfig: %q", DefaultSeparators[0])
	}
}
