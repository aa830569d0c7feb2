package storage

import (
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/atrium/pkg/panel"
)

// TestLocal_PathAndURL tests path and URL resolution.
func TestLocal_PathAndURL(t *testing.T) {
	root := t.TempDir()
	st, err := NewLocal(map[string]Disk{
		"public": {Root: root, URL: "https://admin.example.com/storage/"},
		"local":  {Root: root},
	})
	if err != nil {
		t.Fatalf("NewLocal() failed: %v", err)
	}

	tests := []struct {
		name     string
		disk     string
		rel      string
		wantPath string
		wantURL  string
	}{
		{"simple", "public", "exports/items.csv", filepath.Join(root, "exports", "items.csv"), "https://admin.example.com/storage/exports/items.csv"},
		{"leading slash", "public", "/exports/a.xlsx", filepath.Join(root, "exports", "a.xlsx"), "https://admin.example.com/storage/exports/a.xlsx"},
		{"no url", "local", "a.csv", filepath.Join(root, "a.csv"), "/a.csv"},
		{"dot segments", "public", "exports/../b.csv", filepath.Join(root, "b.csv"), "https://admin.example.com/storage/b.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := st.PathOf(tt.disk, tt.rel)
			if err != nil {
				t.Fatalf("PathOf() error = %v", err)
			}
			if p != tt.wantPath {
				t.Errorf("PathOf() = %q, want %q", p, tt.wantPath)
			}

			u, err := st.URLOf(tt.disk, tt.rel)
			if err != nil {
				t.Fatalf("URLOf() error = %v", err)
			}
			if u != tt.wantURL {
				t.Errorf("URLOf() = %q, want %q", u, tt.wantURL)
			}
		})
	}
}

// TestLocal_Escape tests that traversal cannot leave the disk root.
func TestLocal_Escape(t *testing.T) {
	root := t.TempDir()
	st, err := NewLocal(map[string]Disk{"public": {Root: root}})
	if err != nil {
		t.Fatal(err)
	}

	p, err := st.PathOf("public", "../../etc/passwd")
	if err != nil {
		t.Fatalf("PathOf() error = %v", err)
	}
	if p != filepath.Join(root, "etc", "passwd") {
		t.Errorf("PathOf() = %q, expected path clamped to root", p)
	}
}

// TestLocal_UnknownDisk tests the unknown disk error.
func TestLocal_UnknownDisk(t *testing.T) {
	st, err := NewLocal(map[string]Disk{"public": {Root: t.TempDir()}})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := st.PathOf("s3", "a.csv"); !panel.IsConfigurationError(err) {
		t.Errorf("PathOf() error = %v, want ConfigurationError", err)
	}
	if _, err := st.URLOf("s3", "a.csv"); !panel.IsConfigurationError(err) {
		t.Errorf("URLOf() error = %v, want ConfigurationError", err)
	}
}

// TestLocal_EnsureDir tests directory creation.
func TestLocal_EnsureDir(t *testing.T) {
	root := t.TempDir()
	st, err := NewLocal(map[string]Disk{"public": {Root: root}})
	if err != nil {
		t.Fatal(err)
	}

	p, err := st.EnsureDir("public", "exports/2024")
	if err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		t.Errorf("expected directory at %s", p)
	}
}

// TestNewLocal_EmptyRoot tests disk validation.
func TestNewLocal_EmptyRoot(t *testing.T) {
	if _, err := NewLocal(map[string]Disk{"public": {}}); !panel.IsConfigurationError(err) {
		t.Errorf("NewLocal() error = %v, want ConfigurationError", err)
	}
}
