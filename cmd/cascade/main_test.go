package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/cascade/internal/adapters/telemetry"
	"go.trai.ch/cascade/internal/app"
	"go.trai.ch/cascade/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newTestComponents(t *testing.T) *app.Components {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	application := app.New(
		mocks.NewMockConfigLoader(ctrl),
		mocks.NewMockFileSystem(ctrl),
		mocks.NewMockIndexStore(ctrl),
		telemetry.NewNoOpTracer(),
		nil,
		logger,
	)

	return &app.Components{App: application, Logger: logger}
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	components := newTestComponents(t)

	provider := func(_ context.Context) (*app.Components, func(), error) {
		return components, func() {}, nil
	}

	stderr := new(bytes.Buffer)

	exitCode := run(context.Background(), []string{"version"}, stderr, provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InstallsTracerProvider verifies the entry path replaces the global
// no-op tracer provider with the SDK one before components initialize.
func TestRun_InstallsTracerProvider(t *testing.T) {
	components := newTestComponents(t)

	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var seen trace.TracerProvider
	provider := func(_ context.Context) (*app.Components, func(), error) {
		seen = otel.GetTracerProvider()
		return components, func() {}, nil
	}

	stderr := new(bytes.Buffer)

	exitCode := run(context.Background(), []string{"version"}, stderr, provider)
	assert.Equal(t, 0, exitCode)

	_, ok := seen.(*sdktrace.TracerProvider)
	assert.True(t, ok, "components should resolve tracers against the SDK provider")
}

// TestRun_ProviderFailure verifies that initialization errors are reported
// directly to stderr.
func TestRun_ProviderFailure(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("wiring failed")
	}

	stderr := new(bytes.Buffer)

	exitCode := run(context.Background(), []string{"version"}, stderr, provider)
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "wiring failed")
}

// TestRun_UnknownCommand verifies that a bad command exits non-zero.
func TestRun_UnknownCommand(t *testing.T) {
	components := newTestComponents(t)

	provider := func(_ context.Context) (*app.Components, func(), error) {
		return components, func() {}, nil
	}

	stderr := new(bytes.Buffer)

	exitCode := run(context.Background(), []string{"frobnicate"}, stderr, provider)
	assert.Equal(t, 1, exitCode)
}
