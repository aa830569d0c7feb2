// Package storage resolves filesystem paths and public URLs for named
// disks.
//
// A disk is a root directory plus the public URL it is served under:
//
//	disks:
//	  public:
//	    root: /var/lib/atrium/public
//	    url: https://admin.example.com/storage
//
// PathOf("public", "exports/items.csv") yields
// /var/lib/atrium/public/exports/items.csv and URLOf yields
// https://admin.example.com/storage/exports/items.csv.
package storage

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"mercator-hq/atrium/pkg/panel"
)

// Storage resolves disk-relative paths.
type Storage interface {
	// PathOf returns the absolute filesystem path of rel on disk.
	PathOf(disk, rel string) (string, error)

	// URLOf returns the public URL of rel on disk.
	URLOf(disk, rel string) (string, error)
}

// Disk is a local directory served under a public URL.
type Disk struct {
	Root string
	URL  string
}

// Local is a Storage backed by local directories.
type Local struct {
	disks map[string]Disk
}

// NewLocal creates a local storage from named disks. Roots are made
// absolute.
func NewLocal(disks map[string]Disk) (*Local, error) {
	out := make(map[string]Disk, len(disks))
	for name, d := range disks {
		if d.Root == "" {
			return nil, panel.NewConfigurationError("storage", "disk %q: root cannot be empty", name)
		}
		root, err := filepath.Abs(d.Root)
		if err != nil {
			return nil, fmt.Errorf("disk %q: %w", name, err)
		}
		if d.URL != "" {
			if _, err := url.Parse(d.URL); err != nil {
				return nil, panel.NewConfigurationError("storage", "disk %q: invalid url %q: %v", name, d.URL, err)
			}
		}
		out[name] = Disk{Root: root, URL: strings.TrimSuffix(d.URL, "/")}
	}
	return &Local{disks: out}, nil
}

// Disks returns the configured disk names sorted alphabetically.
func (l *Local) Disks() []string {
	names := make([]string, 0, len(l.disks))
	for name := range l.disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PathOf implements Storage. rel is resolved as if the disk root were
// the filesystem root, so ".." segments cannot leave it.
func (l *Local) PathOf(disk, rel string) (string, error) {
	d, err := l.disk(disk)
	if err != nil {
		return "", err
	}

	clean := filepath.Clean(filepath.FromSlash("/" + rel))
	return filepath.Join(d.Root, clean), nil
}

// URLOf implements Storage.
func (l *Local) URLOf(disk, rel string) (string, error) {
	d, err := l.disk(disk)
	if err != nil {
		return "", err
	}

	clean := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(rel)), "/")
	if d.URL == "" {
		return "/" + clean, nil
	}
	return d.URL + "/" + clean, nil
}

// EnsureDir creates the directory rel on disk if it does not exist and
// returns its absolute path.
func (l *Local) EnsureDir(disk, rel string) (string, error) {
	p, err := l.PathOf(disk, rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", p, err)
	}
	return p, nil
}

func (l *Local) disk(name string) (Disk, error) {
	d, ok := l.disks[name]
	if !ok {
		return Disk{}, panel.NewConfigurationError("storage", "disk %q is not configured (available: %s)",
			name, strings.Join(l.Disks(), ", "))
	}
	return d, nil
}
