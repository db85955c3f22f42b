package solution_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solution-gateway/internal/solution"
	"solution-gateway/internal/solution/testsolution"
)

func newTestWorkspace(updater *testsolution.SolutionUpdater, builder *testsolution.SolutionBuilder, host *testsolution.WorkspaceHost, sink *testsolution.FatalErrorSink) *solution.Workspace {
	return solution.NewWorkspace(context.Background(), host, updater, builder, solution.WithFatalErrorSink(sink))
}

func TestRunWithSolution_SoloRequest(t *testing.T) {
	updater := testsolution.NewSolutionUpdater()
	builder := testsolution.NewSolutionBuilder()
	host := testsolution.NewWorkspaceHost()
	sink := testsolution.NewFatalErrorSink()
	w := newTestWorkspace(updater, builder, host, sink)
	assets := testsolution.NewAssetProvider()

	snap, result, err := solution.RunWithSolution(context.Background(), w, assets, "cs-1", func(s solution.Snapshot) (string, error) {
		return s.SolutionID(), nil
	})

	require.NoError(t, err)
	assert.Equal(t, "cs-1", snap.SolutionID())
	assert.Equal(t, "cs-1", result)
	assert.Equal(t, 1, builder.BuildCallCount())
	assert.Equal(t, 0, sink.ReportCount())
}

func TestRunWithSolution_CollapsesConcurrentRequests(t *testing.T) {
	updater := testsolution.NewSolutionUpdater()
	builder := testsolution.NewSolutionBuilder()
	host := testsolution.NewWorkspaceHost()
	sink := testsolution.NewFatalErrorSink()
	w := newTestWorkspace(updater, builder, host, sink)

	assets := testsolution.NewAssetProvider()
	assets.SyncDelay = 50 * time.Millisecond

	const callers = 20
	var wg sync.WaitGroup
	var successes int32

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := solution.RunWithSolution(context.Background(), w, assets, "cs-shared", func(s solution.Snapshot) (struct{}, error) {
				return struct{}{}, nil
			})
			if err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(callers), successes)
	// Every caller should have collapsed onto a single materialization.
	assert.Equal(t, 1, assets.SyncCallCount())
	assert.Equal(t, 1, builder.BuildCallCount())
}

func TestRunWithSolutionPromoting_AdvancesVersionAndFiresAdded(t *testing.T) {
	updater := testsolution.NewSolutionUpdater()
	builder := testsolution.NewSolutionBuilder()
	host := testsolution.NewWorkspaceHost()
	sink := testsolution.NewFatalErrorSink()
	w := newTestWorkspace(updater, builder, host, sink)
	assets := testsolution.NewAssetProvider()

	_, updated, _, err := solution.RunWithSolutionPromoting(context.Background(), w, assets, "cs-1", 1, func(s solution.Snapshot) (struct{}, error) {
		return struct{}{}, nil
	})

	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, int64(1), w.CurrentVersion())
	assert.Len(t, host.Added, 1)
	assert.Len(t, host.Changed, 0)

	current, ok := w.CurrentSnapshot()
	require.True(t, ok)
	assert.Equal(t, "cs-1", current.SolutionID())
}

func TestRunWithSolutionPromoting_RejectsStaleVersion(t *testing.T) {
	updater := testsolution.NewSolutionUpdater()
	builder := testsolution.NewSolutionBuilder()
	host := testsolution.NewWorkspaceHost()
	sink := testsolution.NewFatalErrorSink()
	w := newTestWorkspace(updater, builder, host, sink)
	assets := testsolution.NewAssetProvider()

	_, updated1, _, err := solution.RunWithSolutionPromoting(context.Background(), w, assets, "cs-2", 5, noop)
	require.NoError(t, err)
	require.True(t, updated1)

	_, updated2, _, err := solution.RunWithSolutionPromoting(context.Background(), w, assets, "cs-3", 3, noop)
	require.NoError(t, err)
	assert.False(t, updated2, "a lower version must not replace a higher one already installed")
	assert.Equal(t, int64(5), w.CurrentVersion())

	current, _ := w.CurrentSnapshot()
	assert.Equal(t, "cs-2", current.SolutionID())
}

func TestRunWithSolutionPromoting_ChangedVsAddedClassification(t *testing.T) {
	updater := testsolution.NewSolutionUpdater()
	builder := testsolution.NewSolutionBuilder()
	host := testsolution.NewWorkspaceHost()
	sink := testsolution.NewFatalErrorSink()
	w := newTestWorkspace(updater, builder, host, sink)
	assets := testsolution.NewAssetProvider()

	_, _, _, err := solution.RunWithSolutionPromoting(context.Background(), w, assets, "cs-a", 1, noop)
	require.NoError(t, err)
	assert.Len(t, host.Added, 1)
	assert.Equal(t, 0, host.Cleared)

	_, _, _, err = solution.RunWithSolutionPromoting(context.Background(), w, assets, "cs-b", 2, noop)
	require.NoError(t, err)
	// Different checksum/solution identity: another "added" transition,
	// and the host's prior solution data must be cleared first.
	assert.Len(t, host.Added, 2)
	assert.Equal(t, 1, host.Cleared)
}

func TestUpdatePrimaryBranch_FastPathOnMatchingChecksum(t *testing.T) {
	updater := testsolution.NewSolutionUpdater()
	builder := testsolution.NewSolutionBuilder()
	host := testsolution.NewWorkspaceHost()
	sink := testsolution.NewFatalErrorSink()
	w := newTestWorkspace(updater, builder, host, sink)
	assets := testsolution.NewAssetProvider()

	require.NoError(t, w.UpdatePrimaryBranch(context.Background(), assets, "cs-1", 1))
	require.Equal(t, 1, builder.BuildCallCount())

	require.NoError(t, w.UpdatePrimaryBranch(context.Background(), assets, "cs-1", 2))
	assert.Equal(t, 1, builder.BuildCallCount(), "matching checksum must short-circuit before any materialization")
}

func TestRunWithSolution_CancellationOnlyAffectsCancellingCaller(t *testing.T) {
	updater := testsolution.NewSolutionUpdater()
	builder := testsolution.NewSolutionBuilder()
	host := testsolution.NewWorkspaceHost()
	sink := testsolution.NewFatalErrorSink()
	w := newTestWorkspace(updater, builder, host, sink)

	assets := testsolution.NewAssetProvider()
	assets.SyncDelay = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	var cancelledErr error
	go func() {
		defer wg.Done()
		_, _, err := solution.RunWithSolution(ctx, w, assets, "cs-cancel", noop)
		cancelledErr = err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	wg.Wait()

	require.Error(t, cancelledErr)
	var cacheErr *solution.CacheError
	require.ErrorAs(t, cancelledErr, &cacheErr)
	assert.Equal(t, solution.ErrKindCancelled, cacheErr.Kind)

	// A second, uncancelled caller for the same checksum still succeeds.
	snap, _, err := solution.RunWithSolution(context.Background(), w, assets, "cs-cancel", noop)
	require.NoError(t, err)
	assert.Equal(t, "cs-cancel", snap.SolutionID())
}

func TestRunWithSolution_LastRequestedReacquire(t *testing.T) {
	updater := testsolution.NewSolutionUpdater()
	builder := testsolution.NewSolutionBuilder()
	host := testsolution.NewWorkspaceHost()
	sink := testsolution.NewFatalErrorSink()
	w := newTestWorkspace(updater, builder, host, sink)
	assets := testsolution.NewAssetProvider()

	_, _, err := solution.RunWithSolution(context.Background(), w, assets, "cs-pin", noop)
	require.NoError(t, err)
	require.Equal(t, 1, builder.BuildCallCount())

	// Re-requesting the same checksum after the first call returned (and
	// released its own reference) must still reuse the materialization
	// via the lastRequested pin, not rebuild it.
	_, _, err = solution.RunWithSolution(context.Background(), w, assets, "cs-pin", noop)
	require.NoError(t, err)
	assert.Equal(t, 1, builder.BuildCallCount())
}

func TestRunWithSolution_AssetFetchFailureReportsToSink(t *testing.T) {
	updater := testsolution.NewSolutionUpdater()
	builder := testsolution.NewSolutionBuilder()
	host := testsolution.NewWorkspaceHost()
	sink := testsolution.NewFatalErrorSink()
	w := newTestWorkspace(updater, builder, host, sink)

	assets := testsolution.NewAssetProvider()
	assets.SyncErr = assertError("boom")

	_, _, err := solution.RunWithSolution(context.Background(), w, assets, "cs-fail", noop)
	require.Error(t, err)

	var cacheErr *solution.CacheError
	require.ErrorAs(t, err, &cacheErr)
	assert.Equal(t, solution.ErrKindAssetFetchFailed, cacheErr.Kind)
	assert.Equal(t, 1, sink.ReportCount())
}

func TestRunWithSolution_IncrementalUpdateSkipsBulkSync(t *testing.T) {
	updater := testsolution.NewSolutionUpdater()
	updater.Incremental = true
	builder := testsolution.NewSolutionBuilder()
	host := testsolution.NewWorkspaceHost()
	sink := testsolution.NewFatalErrorSink()
	w := newTestWorkspace(updater, builder, host, sink)
	assets := testsolution.NewAssetProvider()

	snap, _, err := solution.RunWithSolution(context.Background(), w, assets, "cs-inc", noop)
	require.NoError(t, err)
	assert.Equal(t, "cs-inc", snap.SolutionID())
	assert.Equal(t, 1, updater.RebaseCallCount())
	assert.Equal(t, 0, builder.BuildCallCount())
	assert.Equal(t, 0, assets.SyncCallCount())
}

func noop(solution.Snapshot) (struct{}, error) { return struct{}{}, nil }

type assertError string

func (e assertError) Error() string { return string(e) }
