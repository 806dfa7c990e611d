package domain

import "go.trai.ch/zerr"

var (
	// ErrDuplicateStepID is returned when a plan contains two steps with the same id.
	ErrDuplicateStepID = zerr.New("duplicate step id")

	// ErrMissingDependency is returned when a step references a dependency id absent from the plan.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the step dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrUnknownAction is returned when a planned step uses an action outside the closed vocabulary.
	ErrUnknownAction = zerr.New("unknown action kind")

	// ErrInvalidStepParams is returned when a step's parameter map does not match its action's shape.
	ErrInvalidStepParams = zerr.New("invalid step parameters")

	// ErrStepNotFound is returned when a requested step is not part of the plan.
	ErrStepNotFound = zerr.New("step not found")

	// ErrPlanningFailed is returned when the backend cannot produce a valid plan
	// after the single retry. It is fatal to the run: no cascade run is created.
	ErrPlanningFailed = zerr.New("planning failed")

	// ErrEmptyPlan is returned when the backend produces a plan with no steps.
	ErrEmptyPlan = zerr.New("plan contains no steps")

	// ErrStepExecutionFailed is returned when a step fails terminally.
	ErrStepExecutionFailed = zerr.New("step execution failed")

	// ErrStepTimeout is returned when a step exceeds its wall-clock timeout.
	ErrStepTimeout = zerr.New("step timed out")

	// ErrDeadlockDetected is returned when the scheduler cannot make progress:
	// steps remain pending, nothing is ready, and nothing is running.
	ErrDeadlockDetected = zerr.New("deadlock detected: no runnable steps remain")

	// ErrRunCancelled is returned when the run's cancellation signal fired.
	ErrRunCancelled = zerr.New("run cancelled")

	// ErrCascadeFailed is returned when a cascade run finishes with failed steps.
	ErrCascadeFailed = zerr.New("cascade run finished with failures")

	// ErrBackendUnavailable is returned for any backend transport, rate-limit
	// or malformed-response problem. It is recoverable at the step level,
	// never process-fatal.
	ErrBackendUnavailable = zerr.New("backend unavailable")

	// ErrScanFailed is returned when a scan cannot walk any of its roots.
	ErrScanFailed = zerr.New("scan failed")

	// ErrIndexEmpty is returned when a query is issued before any scan or load.
	ErrIndexEmpty = zerr.New("source index is empty: run a scan first")

	// ErrIndexInconsistent is returned when a loaded snapshot references paths
	// absent from its summary collection.
	ErrIndexInconsistent = zerr.New("index invariant violated: lookup entry references unknown path")

	// ErrSnapshotReadFailed is returned when the snapshot file cannot be read.
	ErrSnapshotReadFailed = zerr.New("failed to read index snapshot")

	// ErrSnapshotWriteFailed is returned when the snapshot file cannot be written.
	ErrSnapshotWriteFailed = zerr.New("failed to write index snapshot")

	// ErrSnapshotCorrupt is returned when the snapshot checksum or format version does not match.
	ErrSnapshotCorrupt = zerr.New("index snapshot corrupt")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigInvalid is returned when a config value is out of range.
	ErrConfigInvalid = zerr.New("invalid config value")

	// ErrFileReadFailed is returned when a source file cannot be read.
	ErrFileReadFailed = zerr.New("failed to read file")

	// ErrFileWriteFailed is returned when a source file cannot be written.
	ErrFileWriteFailed = zerr.New("failed to write file")

	// ErrPatchNoMatch is returned when a patch step's find text is absent from the target.
	ErrPatchNoMatch = zerr.New("patch target text not found")

	// ErrVerificationFailed is returned when a verify step's backend verdict is FAIL.
	ErrVerificationFailed = zerr.New("verification failed")
)
