package slogutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"100", 100},
		{"100B", 100},
		{"1KB", 1024},
		{"10mb", 10 << 20},
		{"1.5KB", 1536},
		{"2GB", 2 << 30},
		{"ten", 0},
		{"10TB", 0},
	}
	for _, tt := range tests {
		if got := ParseSize(tt.in); got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRotatingWriter_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archlens.log")

	w, err := OpenRotating(path, 32, 2)
	if err != nil {
		t.Fatalf("OpenRotating failed: %v", err)
	}
	defer w.Close()

	line := strings.Repeat("x", 20) + "\n"
	for i := 0; i < 4; i++ {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected first backup: %v", err)
	}
	if _, err := os.Stat(path + ".2"); err != nil {
		t.Errorf("expected second backup: %v", err)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected no third backup, got err=%v", err)
	}
	if got := len(w.Backups()); got != 2 {
		t.Errorf("Backups() = %d, want 2", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != line {
		t.Errorf("current file = %q, want single line", data)
	}
}

func TestRotatingWriter_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archlens.log")

	w, err := OpenRotating(path, 16, 0)
	if err != nil {
		t.Fatalf("OpenRotating failed: %v", err)
	}
	defer w.Close()

	_, _ = w.Write([]byte("0123456789abc\n"))
	_, _ = w.Write([]byte("second\n"))

	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("no backups should be kept")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "second\n" {
		t.Errorf("current file = %q", data)
	}
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := OpenRotating(filepath.Join(t.TempDir(), "a.log"), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("late")); err == nil {
		t.Error("expected error writing to closed writer")
	}
}
