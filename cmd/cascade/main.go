// Package main is the entry point for the cascade tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/cascade/cmd/cascade/commands"
	"go.trai.ch/cascade/internal/adapters/telemetry"
	"go.trai.ch/cascade/internal/app"
	"go.trai.ch/cascade/internal/core/domain"
	_ "go.trai.ch/cascade/internal/wiring"
)

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, func(), error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, func(ctx context.Context) (*app.Components, func(), error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, func() {}, err
	}))
}

func run(
	ctx context.Context,
	args []string,
	stderr io.Writer,
	provider ComponentProvider,
) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Install the tracer provider before any component asks for a
	// tracer; the global default is a no-op that records nothing.
	shutdownTracing := telemetry.Setup()
	defer func() { _ = shutdownTracing(ctx) }()

	// 2. Initialize application components
	components, _, err := provider(ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		// Write directly to stderr passed in
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}

	// 3. Interface - CLI
	cli := commands.New(components.App)
	cli.SetArgs(args)
	cli.SetOutput(os.Stdout, stderr)

	// 4. Execution
	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, domain.ErrCascadeFailed) {
			// The run renderer already reported the failures.
			return 1
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
