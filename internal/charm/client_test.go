// ABOUTME: Tests for charm key helpers
// ABOUTME: Verifies vector keys carry the vector prefix
package charm

import "testing"

func TestVectorKey(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"abc", "vector:abc"},
		{"", "vector:"},
		{"5b0d1f0e-0000-5000-8000-000000000000", "vector:5b0d1f0e-0000-5000-8000-000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			key := VectorKey(tt.id)
			if key != tt.want {
				t.Errorf("VectorKey(%q) = %q, want %q", tt.id, key, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Host != DefaultHost {
		t.Errorf("Host = %q, want %q", cfg.Host, DefaultHost)
	}
	if cfg.DBName == "" {
		t.Error("DBName should not be empty")
	}
	if !cfg.AutoSync {
		t.Error("AutoSync should default to true")
	}
}
