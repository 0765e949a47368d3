package lifeline

import (
	"context"
	"errors"
	"testing"
)

func TestRun_StartFailure(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), Config{Name: "svc"},
		func(context.Context) error { return boom }, nil)

	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
}

func TestNewLifecycle(t *testing.T) {
	lc := NewLifecycle(nil, nil)
	if lc.State() != StateHalted {
		t.Fatalf("State() = %s, want Halted", lc.State())
	}
	if err := lc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if lc.State() != StateRunning {
		t.Errorf("State() = %s, want Running", lc.State())
	}
	_ = lc.Stop(context.Background())
}
