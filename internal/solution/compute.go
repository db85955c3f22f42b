package solution

import "context"

// computeSnapshot is the any-branch producer body: prefer
// an incremental rebase of the current primary snapshot onto cs, and
// fall back to a full bulk sync (asset fetch + manifest + build) when no
// incremental path exists.
//
// Failures that are not caller-side cancellation are reported to the
// FatalErrorSink before being wrapped into a *CacheError, since a
// materialization failure here is shared by every caller waiting on the
// same checksum, not just the one that happened to trigger the fetch.
func (w *Workspace) computeSnapshot(ctx context.Context, assets AssetProvider, cs Checksum) (Snapshot, error) {
	if w.updater != nil {
		incremental, err := w.updater.IsIncrementalUpdate(ctx, cs)
		if err != nil {
			return nil, w.failMaterialization(cs, err, isContextCancellation(err))
		}
		if incremental {
			snap, err := w.updater.CreateSolution(ctx, cs)
			if err != nil {
				return nil, w.reportAndWrap(cs, err, newSolutionBuildFailedError)
			}
			return snap, nil
		}
	}

	return w.bulkSync(ctx, assets, cs)
}

// bulkSync implements the from-scratch path: synchronize assets, fetch
// the project/document manifest, then hand both to the SolutionBuilder.
func (w *Workspace) bulkSync(ctx context.Context, assets AssetProvider, cs Checksum) (Snapshot, error) {
	if err := assets.SynchronizeSolutionAssets(ctx, cs); err != nil {
		return nil, w.reportAndWrap(cs, err, newAssetFetchFailedError)
	}

	info, err := assets.CreateSolutionInfo(ctx, cs)
	if err != nil {
		return nil, w.reportAndWrap(cs, err, newAssetFetchFailedError)
	}

	snap, err := w.builder.NewSolution(ctx, cs, info)
	if err != nil {
		return nil, w.reportAndWrap(cs, err, newSolutionBuildFailedError)
	}

	return snap, nil
}

// reportAndWrap reports err to the FatalErrorSink unless it's a caller
// cancellation, and wraps it with the given *CacheError constructor.
func (w *Workspace) reportAndWrap(cs Checksum, err error, wrap func(Checksum, error) *CacheError) error {
	if isContextCancellation(err) {
		return newCancelledError(cs, err)
	}
	wrapped := wrap(cs, err)
	w.sink.ReportFatalError(wrapped, map[string]interface{}{"checksum": string(cs)})
	return wrapped
}

// failMaterialization handles the IsIncrementalUpdate probe's own error,
// which carries no inherent kind until classified here.
func (w *Workspace) failMaterialization(cs Checksum, err error, cancelled bool) error {
	if cancelled {
		return newCancelledError(cs, err)
	}
	wrapped := newSolutionBuildFailedError(cs, err)
	w.sink.ReportFatalError(wrapped, map[string]interface{}{"checksum": string(cs), "stage": "incremental_probe"})
	return wrapped
}
