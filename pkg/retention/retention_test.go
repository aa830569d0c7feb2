package retention

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

var testNow = time.Date(2025, 11, 20, 3, 0, 0, 0, time.UTC)

// writeAged creates a file with the given age relative to testNow.
func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("ID,Name\n1,Lamp\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := testNow.Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

type fakeTasks struct {
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakeTasks) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

// TestPruner_Prune tests age based removal of export files.
func TestPruner_Prune(t *testing.T) {
	dir := t.TempDir()
	day := 24 * time.Hour

	old := []string{
		filepath.Join(dir, "items-1.csv"),
		filepath.Join(dir, "nested", "covers-1.XLSX"),
	}
	kept := []string{
		filepath.Join(dir, "items-2.csv"),
		filepath.Join(dir, "notes.txt"),
	}
	writeAged(t, old[0], 8*day)
	writeAged(t, old[1], 30*day)
	writeAged(t, kept[0], 6*day)
	writeAged(t, kept[1], 30*day)

	tasks := &fakeTasks{n: 4}
	p := NewPruner(&Config{RetentionDays: 7, Dir: dir, TaskRetention: 48 * time.Hour},
		WithTaskPruner(tasks), WithClock(func() time.Time { return testNow }))

	res, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if res.Files != 2 || res.Tasks != 4 || res.Bytes == 0 {
		t.Errorf("Prune() = %+v, want 2 files and 4 tasks", res)
	}
	for _, path := range old {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s still exists", path)
		}
	}
	for _, path := range kept {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s was removed: %v", path, err)
		}
	}
	if want := testNow.Add(-48 * time.Hour); !tasks.cutoff.Equal(want) {
		t.Errorf("task cutoff = %v, want %v", tasks.cutoff, want)
	}
}

// TestPruner_Disabled tests that zero retention keeps everything.
func TestPruner_Disabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.csv")
	writeAged(t, path, 365*24*time.Hour)

	tasks := &fakeTasks{}
	res, err := NewPruner(&Config{Dir: dir}, WithTaskPruner(tasks)).Prune(context.Background())
	if err != nil || res != (Result{}) {
		t.Errorf("Prune() = %+v, %v", res, err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file removed: %v", err)
	}
	if !tasks.cutoff.IsZero() {
		t.Error("tasks pruned without a task retention")
	}
}

// TestPruner_Errors tests missing directories and task store failures.
func TestPruner_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "never-exported")
	if _, err := NewPruner(&Config{RetentionDays: 1, Dir: missing}).Prune(context.Background()); err != nil {
		t.Errorf("missing dir: Prune() error = %v", err)
	}

	cause := errors.New("database is locked")
	p := NewPruner(&Config{RetentionDays: 1, Dir: missing, TaskRetention: time.Hour},
		WithTaskPruner(&fakeTasks{err: cause}))
	_, err := p.Prune(context.Background())

	var re *RetentionError
	if !errors.As(err, &re) || re.Phase != "tasks" || !errors.Is(err, cause) {
		t.Errorf("Prune() error = %v, want tasks RetentionError", err)
	}
}

// TestScheduler_Start tests scheduling from cron expressions.
func TestScheduler_Start(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "valid daily schedule", schedule: "0 3 * * *", wantRunning: true},
		{name: "valid hourly schedule", schedule: "0 * * * *", wantRunning: true},
		{name: "empty schedule", schedule: ""},
		{name: "invalid schedule", schedule: "invalid cron", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPruner(&Config{PruneSchedule: tt.schedule, RetentionDays: 7, Dir: t.TempDir()}).Scheduler()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := s.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Fatalf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if s.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", s.IsRunning(), tt.wantRunning)
			}
			if tt.wantRunning {
				if next := s.NextRun(); next == nil || next.IsZero() {
					t.Errorf("NextRun() = %v", next)
				}
			}

			s.Stop()
			if s.IsRunning() {
				t.Error("scheduler still running after Stop")
			}
		})
	}
}

// TestScheduler_Run tests that Run returns on cancellation.
func TestScheduler_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewPruner(&Config{PruneSchedule: "@every 1h", RetentionDays: 7}).Scheduler()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
}
