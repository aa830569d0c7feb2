package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/atrium/pkg/cli"
	"mercator-hq/atrium/pkg/datasource"
)

const resourcesYAML = `resources:
  - key: items
    title: Items
    table: items
    default_sort: id
    fields:
      - kind: id
      - kind: text
        label: Name
        sortable: true
      - kind: switcher
        label: Active
`

// workspace writes a source database, a definition file and a config
// file into a temporary directory and returns the config path.
func workspace(t *testing.T, definitions string) string {
	t.Helper()
	dir := t.TempDir()

	db, err := datasource.OpenSQLite(&datasource.SQLiteConfig{Path: filepath.Join(dir, "source.db")})
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, active INTEGER)`,
		`INSERT INTO items (id, name, active) VALUES (1, 'Lamp', 1), (2, 'Chair', 0), (3, 'Bulb', 1)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	db.Close()

	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	defs := write("resources.yaml", definitions)
	return write("atrium.yaml", fmt.Sprintf(`storage:
  disks:
    public:
      root: %[1]s/public
      url: https://admin.test/storage
export:
  format: csv
queue:
  backend: sqlite
  sqlite:
    path: %[1]s/queue.db
datasource:
  path: %[1]s/source.db
resources:
  path: %[2]s
notifications:
  log: false
telemetry:
  logging:
    level: error
`, dir, defs))
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	exportFlags.filters, exportFlags.notify = nil, nil
	exportFlags.sort, exportFlags.order, exportFlags.delimiter, exportFlags.filename = "", "", "", ""
	exportFlags.csv, exportFlags.queue = false, false
	workerFlags.drain = false
	pruneFlags.days = 0
	outputFormat = "text"
	verbose = false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), err
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// TestExportCommand tests a filtered synchronous export.
func TestExportCommand(t *testing.T) {
	cfgPath := workspace(t, resourcesYAML)

	out, err := run(t, "export", "items", "--filter", "active=1", "--config", cfgPath)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	first, _, _ := strings.Cut(out, "\n")
	path, ok := strings.CutPrefix(first, "✓ Exported items to ")
	if !ok {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "URL: https://admin.test/storage/exports/items-") {
		t.Errorf("output %q has no public URL", out)
	}

	lines := readLines(t, path)
	if len(lines) != 3 || lines[0] != "ID,Name,Active" {
		t.Fatalf("file lines = %q", lines)
	}
	if !strings.HasPrefix(lines[1], "1,Lamp") || !strings.HasPrefix(lines[2], "3,Bulb") {
		t.Errorf("rows = %q, want Lamp and Bulb", lines[1:])
	}
}

// TestExportCommand_QueuedThenDrained tests that a queued export is
// picked up by a separate worker invocation.
func TestExportCommand_QueuedThenDrained(t *testing.T) {
	cfgPath := workspace(t, resourcesYAML)

	out, err := run(t, "export", "items", "--queue", "--notify", "alice", "--filename", "nightly", "--config", cfgPath)
	if err != nil {
		t.Fatalf("export --queue failed: %v", err)
	}
	if !strings.HasPrefix(out, "✓ Export queued (task ") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, "worker", "--drain", "--config", cfgPath)
	if err != nil {
		t.Fatalf("worker --drain failed: %v", err)
	}
	if want := "✓ Processed 1 tasks (1 done, 0 failed, 0 pending)\n"; out != want {
		t.Errorf("worker output = %q, want %q", out, want)
	}

	path := filepath.Join(filepath.Dir(cfgPath), "public", "exports", "nightly.csv")
	if lines := readLines(t, path); len(lines) != 4 {
		t.Errorf("queued export has %d lines, want 4", len(lines))
	}
}

// TestFieldsCommand tests field resolution output.
func TestFieldsCommand(t *testing.T) {
	cfgPath := workspace(t, resourcesYAML)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "index",
			args: []string{"fields", "items", "-o", "csv"},
			want: "name,label,kind,group,sortable,condition\n" +
				"id,ID,ID,,false,\n" +
				"name,Name,Text,,true,\n" +
				"active,Active,Switcher,,false,\n",
		},
		{
			name: "form hides id",
			args: []string{"fields", "items", "form", "-o", "csv"},
			want: "name,label,kind,group,sortable,condition\n" +
				"name,Name,Text,,true,\n" +
				"active,Active,Switcher,,false,\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append(tt.args, "--config", cfgPath)...)
			if err != nil {
				t.Fatalf("fields failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, out); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestResourcesCommand tests the resource listing.
func TestResourcesCommand(t *testing.T) {
	cfgPath := workspace(t, resourcesYAML)

	out, err := run(t, "resources", "-o", "csv", "--config", cfgPath)
	if err != nil {
		t.Fatalf("resources failed: %v", err)
	}
	want := "key,title,index,form,export,filters\nitems,Items,3,2,3,0\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

// TestValidateCommand tests valid and invalid definition files.
func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", "--config", workspace(t, resourcesYAML))
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "Resource definitions valid (1 resources") {
		t.Errorf("output = %q", out)
	}

	broken := strings.Replace(resourcesYAML, "kind: switcher", "kind: slider", 1)
	_, err = run(t, "validate", "--config", workspace(t, broken))
	if err == nil {
		t.Fatal("expected an error for an unknown field kind")
	}
	if code := cli.ExitCode(err); code != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitConfig)
	}
}

// TestPruneCommand tests a retention run with nothing to delete.
func TestPruneCommand(t *testing.T) {
	out, err := run(t, "prune", "--config", workspace(t, resourcesYAML))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if want := "✓ Deleted 0 files (0 bytes) and 0 finished jobs\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

// TestVersionCommand tests the version output.
func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Atrium "+Version+"\n") || !strings.Contains(out, "Go Version: go") {
		t.Errorf("output = %q", out)
	}
}

// TestExportParams tests flag to query parameter conversion.
func TestExportParams(t *testing.T) {
	params, err := exportParams([]string{"active=1", "name=Lamp=Large"}, "id", "desc")
	if err != nil {
		t.Fatal(err)
	}
	want := "filters%5Bactive%5D=1&filters%5Bname%5D=Lamp%3DLarge&order=desc&sort=id"
	if got := params.Encode(); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}

	if _, err := exportParams([]string{"active"}, "", ""); err == nil {
		t.Error("expected an error for a filter without value")
	}
}
