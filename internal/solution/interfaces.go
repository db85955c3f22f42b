package solution

import "context"

// AssetProvider fetches and validates asset bytes from the remote asset
// transfer layer. It is an external collaborator: this package never
// interprets asset bytes, only asks for them to be synchronized and for
// a manifest describing what a from-scratch solution build would need.
type AssetProvider interface {
	// SynchronizeSolutionAssets ensures every asset referenced by cs is
	// present locally, fetching whatever is missing.
	SynchronizeSolutionAssets(ctx context.Context, cs Checksum) error

	// CreateSolutionInfo returns the project/document manifest for cs,
	// valid only after SynchronizeSolutionAssets has succeeded for the
	// same checksum.
	CreateSolutionInfo(ctx context.Context, cs Checksum) (*SolutionInfo, error)
}

// SolutionUpdater performs incremental rebase of an existing snapshot
// onto a new checksum, when possible, avoiding a full bulk sync.
type SolutionUpdater interface {
	// IsIncrementalUpdate reports whether the workspace's current
	// primary snapshot can be rebased onto cs instead of rebuilt from
	// scratch.
	IsIncrementalUpdate(ctx context.Context, cs Checksum) (bool, error)

	// CreateSolution performs the incremental rebase and returns the
	// resulting snapshot. Only valid to call when IsIncrementalUpdate
	// returned true for the same checksum.
	CreateSolution(ctx context.Context, cs Checksum) (Snapshot, error)
}

// SolutionBuilder assembles a fresh snapshot during bulk sync: create
// the base solution, then add each project folder in turn.
type SolutionBuilder interface {
	NewSolution(ctx context.Context, cs Checksum, info *SolutionInfo) (Snapshot, error)
}

// WorkspaceHost is the embedding host: it observes workspace-change
// events. It has no snapshot accessor; the current primary snapshot is
// read from Workspace.CurrentSnapshot.
type WorkspaceHost interface {
	OnSolutionAdded(newSnapshot Snapshot)
	OnSolutionChanged(newSnapshot Snapshot)
	ClearSolutionData()
}

// FatalErrorSink reports non-cancellation materialization failures.
// Production code wires an adapter over the structured logger; tests
// can wire a recording stub.
type FatalErrorSink interface {
	ReportFatalError(err error, fields map[string]interface{})
}

// noopFatalErrorSink discards reports. Used when Workspace is built
// without an explicit sink.
type noopFatalErrorSink struct{}

func (noopFatalErrorSink) ReportFatalError(error, map[string]interface{}) {}
