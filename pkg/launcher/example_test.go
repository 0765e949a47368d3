package launcher_test

import (
	"context"
	"fmt"

	"github.com/bft-labs/lifeline/pkg/launcher"
	"github.com/bft-labs/lifeline/pkg/lifecycle"
	"github.com/bft-labs/lifeline/pkg/observer"
)

// ExampleNew runs an application until its context is cancelled.
func ExampleNew() {
	start := func(context.Context) error {
		fmt.Println("starting demo")
		return nil
	}
	stop := func(context.Context) error {
		fmt.Println("stopping demo")
		return nil
	}

	l, err := launcher.New(launcher.Config{Name: "demo"}, start, stop)
	if err != nil {
		fmt.Printf("failed to create launcher: %v\n", err)
		return
	}

	// Stop as soon as the application is up.
	ctx, cancel := context.WithCancel(context.Background())
	l.Lifecycle().Observers().RegisterFunc(observer.Started, func(*lifecycle.Lifecycle) error {
		cancel()
		return nil
	})

	if err := l.Run(ctx); err != nil {
		fmt.Printf("run failed: %v\n", err)
	}
	fmt.Println(l.Lifecycle().State())

	// Output:
	// starting demo
	// stopping demo
	// Halted
}
