package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bft-labs/lifeline/pkg/lifecycle"
)

func TestFileRepository_LoadMissing(t *testing.T) {
	repo := NewFileRepository(t.TempDir(), "")

	s, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !s.IsEmpty() {
		t.Errorf("Load() = %+v, want empty status", s)
	}
}

func TestFileRepository_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	repo := NewFileRepository(dir, "app.json")
	want := Status{InstanceID: "abc", Name: "api", State: "Running", PID: 42, ChildPID: 43}

	if err := repo.Save(context.Background(), want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(repo.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.InstanceID != want.InstanceID || got.ChildPID != want.ChildPID || got.State != want.State {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if err := repo.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := repo.Remove(); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
}

func TestFileRepository_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir, "")
	if err := os.WriteFile(repo.Path(), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.Load(context.Background()); err == nil {
		t.Error("Load() expected error for corrupt file")
	}
}

func TestRecorder_FollowsLifecycle(t *testing.T) {
	repo := NewFileRepository(t.TempDir(), "")
	rec := NewRecorder(repo, WithChildPID(func() int { return 777 }))
	l := lifecycle.New(nil, nil, lifecycle.WithName("api"))
	if err := l.Register(rec); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	ctx := context.Background()

	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	running, _ := repo.Load(ctx)
	if running.State != "Running" || running.ChildPID != 777 || running.InstanceID != l.ID() {
		t.Errorf("status after start = %+v", running)
	}
	if running.PID != os.Getpid() || running.Name != "api" {
		t.Errorf("status identity = %+v", running)
	}

	if err := l.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	halted, _ := repo.Load(ctx)
	if halted.State != "Halted" || halted.ChildPID != 0 || halted.StoppedAt.IsZero() {
		t.Errorf("status after stop = %+v", halted)
	}
	if rec.Status().State != "Halted" {
		t.Errorf("Status() = %+v", rec.Status())
	}
}

type failingRepo struct{}

func (failingRepo) Load(context.Context) (Status, error) { return Status{}, nil }
func (failingRepo) Save(context.Context, Status) error   { return errors.New("read-only filesystem") }

func TestRecorder_SaveFailureStopsStart(t *testing.T) {
	l := lifecycle.New(nil, nil)
	if err := l.Register(NewRecorder(failingRepo{})); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := l.Start(context.Background())

	if err == nil {
		t.Fatal("Start() expected error when status cannot be saved")
	}
	if l.State() != lifecycle.StateHalted {
		t.Errorf("state = %v, want Halted", l.State())
	}
}
