//go:build linux

package metrics

import "testing"

func TestProcfsReader(t *testing.T) {
	b, err := NewProcfsReader().ResidentBytes()
	if err != nil {
		t.Fatalf("ResidentBytes failed: %v", err)
	}
	if b == 0 {
		t.Error("Expected non-zero resident memory for the test process")
	}
}

func TestRusageReader(t *testing.T) {
	b, err := NewRusageReader().ResidentBytes()
	if err != nil {
		t.Fatalf("ResidentBytes failed: %v", err)
	}
	if b == 0 {
		t.Error("Expected non-zero peak resident memory for the test process")
	}
}
