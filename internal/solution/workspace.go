package solution

import (
	"context"
	"sync"

	"solution-gateway/internal/logging"
)

// Workspace is the public façade of the remote workspace solution cache:
// it holds the current primary snapshot and its monotonic version, and
// exposes RunWithSolution/UpdatePrimaryBranch to concurrent callers.
//
// All of Workspace's bookkeeping (both checksumCache instances' maps,
// refcounts, lastRequested swaps, and currentVersion/current snapshot)
// serializes on a single *sync.Mutex instance injected at construction,
// so there is exactly one serialization domain.
type Workspace struct {
	mu *sync.Mutex

	anyBranch     *checksumCache
	primaryBranch *checksumCache

	current        Snapshot
	currentVersion int64

	host    WorkspaceHost
	updater SolutionUpdater
	builder SolutionBuilder
	sink    FatalErrorSink
	logger  *logging.StructuredLogger

	// ctx is the Workspace's own long-lived context: materializations
	// are derived from it, not from any one caller's per-request
	// context, since a materialization must outlive any single caller.
	ctx context.Context
}

// Option configures a Workspace at construction.
type Option func(*Workspace)

// WithFatalErrorSink overrides the default no-op sink.
func WithFatalErrorSink(sink FatalErrorSink) Option {
	return func(w *Workspace) { w.sink = sink }
}

// WithLogger attaches a structured logger for materialization/promotion
// diagnostics.
func WithLogger(logger *logging.StructuredLogger) Option {
	return func(w *Workspace) { w.logger = logger }
}

// NewWorkspace constructs a Workspace. ctx bounds the lifetime of every
// materialization this Workspace will ever start; cancelling it tears
// down all in-flight producers.
func NewWorkspace(ctx context.Context, host WorkspaceHost, updater SolutionUpdater, builder SolutionBuilder, opts ...Option) *Workspace {
	mu := &sync.Mutex{}

	w := &Workspace{
		mu:             mu,
		anyBranch:      newChecksumCache(mu),
		primaryBranch:  newChecksumCache(mu),
		currentVersion: noVersion,
		host:           host,
		updater:        updater,
		builder:        builder,
		sink:           noopFatalErrorSink{},
		ctx:            ctx,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// acquisition bundles the references a single RunWithSolution call
// holds across its lifetime: the any-branch entry always, and the
// primary-branch entry only when promoting.
type acquisition struct {
	anyEntry  *refCountedLazySolution
	primEntry *refCountedLazySolution
}

// release drops every reference this acquisition holds. Safe to call
// with some fields nil.
func (a *acquisition) release(w *Workspace) {
	w.mu.Lock()
	if a.anyEntry != nil {
		a.anyEntry.release()
	}
	if a.primEntry != nil {
		a.primEntry.release()
	}
	w.mu.Unlock()
}

// RunWithSolution obtains (or reuses) the snapshot for cs, invokes impl
// against it, and returns both the snapshot and impl's result. It never
// moves the primary pointer.
func RunWithSolution[T any](ctx context.Context, w *Workspace, assets AssetProvider, cs Checksum, impl func(Snapshot) (T, error)) (Snapshot, T, error) {
	var zero T

	acq, snap, err := w.acquireAnyBranch(ctx, assets, cs)
	defer acq.release(w)
	if err != nil {
		return snap, zero, err
	}

	result, implErr := impl(snap)
	w.pinLastRequested(w.anyBranch, cs, acq.anyEntry)
	return snap, result, implErr
}

// RunWithSolutionPromoting is RunWithSolution's promoting variant:
// after materializing cs's snapshot, it is additionally promoted to
// become the Workspace's primary snapshot provided
// version > currentVersion.
func RunWithSolutionPromoting[T any](ctx context.Context, w *Workspace, assets AssetProvider, cs Checksum, version int64, impl func(Snapshot) (T, error)) (Snapshot, bool, T, error) {
	var zero T

	acq, snap, err := w.acquirePromoting(ctx, assets, cs, version)
	defer acq.release(w)
	if err != nil {
		return snap, false, zero, err
	}

	result, implErr := impl(snap)

	w.pinLastRequested(w.anyBranch, cs, acq.anyEntry)
	w.pinLastRequested(w.primaryBranch, cs, acq.primEntry)

	// acq.primEntry.promotion is written once by this entry's own
	// producer before its task.wait() above returned, so reading it here
	// (without holding mu) is safe: the channel close that unblocked
	// wait() is a happens-before edge. A primary-branch cache hit on an
	// entry created by an earlier call with no promotion field set
	// cannot occur: every primary-branch entry is created exclusively
	// through acquirePromoting, which always supplies one.
	updated := acq.primEntry != nil && acq.primEntry.promotion != nil && acq.primEntry.promotion.updated
	return snap, updated, result, implErr
}

// UpdatePrimaryBranch is RunWithSolutionPromoting with a no-op impl.
// It fast-paths out if the current primary already matches cs.
func (w *Workspace) UpdatePrimaryBranch(ctx context.Context, assets AssetProvider, cs Checksum, version int64) error {
	w.mu.Lock()
	if w.current != nil && Checksum(w.current.SolutionID()) == cs {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	noop := func(Snapshot) (struct{}, error) { return struct{}{}, nil }
	_, _, _, err := RunWithSolutionPromoting(ctx, w, assets, cs, version, noop)
	return err
}

// acquireAnyBranch is the non-promoting acquisition path:
// probe/create in the any-branch cache, then await materialization.
func (w *Workspace) acquireAnyBranch(ctx context.Context, assets AssetProvider, cs Checksum) (acquisition, Snapshot, error) {
	var acq acquisition

	entry, err := w.getOrCreateAnyBranchEntry(cs, assets)
	if err != nil {
		return acq, nil, err
	}
	acq.anyEntry = entry

	snap, waitErr := entry.task.wait(ctx)
	if waitErr != nil {
		return acq, nil, w.classifyWaitError(cs, waitErr)
	}
	return acq, snap, nil
}

// acquirePromoting probes the primary-branch cache first (the
// matching-checksum fast path lives in UpdatePrimaryBranch itself);
// on a primary hit, reuse it directly without touching the
// any-branch cache at all. On a primary miss, materialize via the
// any-branch cache, then install/find the corresponding primary-branch
// entry whose producer promotes the snapshot via
// TryUpdateCurrentSolution.
func (w *Workspace) acquirePromoting(ctx context.Context, assets AssetProvider, cs Checksum, version int64) (acquisition, Snapshot, error) {
	var acq acquisition

	w.mu.Lock()
	primaryHit, err := w.primaryBranch.tryFastGet(cs)
	w.mu.Unlock()
	if err != nil {
		return acq, nil, err
	}

	if primaryHit != nil {
		acq.primEntry = primaryHit
		snap, waitErr := primaryHit.task.wait(ctx)
		if waitErr != nil {
			return acq, nil, w.classifyWaitError(cs, waitErr)
		}
		return acq, snap, nil
	}

	anyEntry, err := w.getOrCreateAnyBranchEntry(cs, assets)
	if err != nil {
		return acq, nil, err
	}
	acq.anyEntry = anyEntry

	snap, waitErr := anyEntry.task.wait(ctx)
	if waitErr != nil {
		return acq, nil, w.classifyWaitError(cs, waitErr)
	}

	w.mu.Lock()
	primEntry, perr := w.primaryBranch.tryFastGet(cs)
	if perr != nil {
		w.mu.Unlock()
		return acq, nil, perr
	}
	if primEntry == nil {
		promotion := &promotionOutcome{}
		primEntry, perr = w.primaryBranch.slowGetOrCreateWithPromotion(w.ctx, cs, w.promotingProducer(snap, version, promotion), promotion)
		if perr != nil {
			w.mu.Unlock()
			return acq, nil, perr
		}
	}
	w.mu.Unlock()
	acq.primEntry = primEntry

	promoted, waitErr := primEntry.task.wait(ctx)
	if waitErr != nil {
		return acq, nil, w.classifyWaitError(cs, waitErr)
	}

	return acq, promoted, nil
}

// getOrCreateAnyBranchEntry implements the "two concurrent requests for
// the same unknown checksum collapse onto one refCountedLazySolution"
// guarantee: the fast path and the create path run under the same lock
// acquisition so no interleaving can create two entries for one cs.
func (w *Workspace) getOrCreateAnyBranchEntry(cs Checksum, assets AssetProvider) (*refCountedLazySolution, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, err := w.anyBranch.tryFastGet(cs)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		return entry, nil
	}

	return w.anyBranch.slowGetOrCreate(w.ctx, cs, w.computeSnapshotProducer(assets, cs))
}

// pinLastRequested re-pins the cache's one-deep LRU slot after a
// successful run. Must be called with no lock held (see
// checksumCache.setLastRequested's own doc comment).
func (w *Workspace) pinLastRequested(cache *checksumCache, cs Checksum, e *refCountedLazySolution) {
	if e == nil {
		return
	}
	if lerr := cache.setLastRequested(e, cs); lerr != nil && w.logger != nil {
		w.logger.WithError(lerr).WithField("checksum", string(cs)).Warn("failed to pin lastRequested entry")
	}
}

// classifyWaitError distinguishes a caller-side ctx cancellation from a
// genuine materialization failure already classified by the producer.
func (w *Workspace) classifyWaitError(cs Checksum, err error) error {
	if ce, ok := err.(*CacheError); ok {
		return ce
	}
	if isContextCancellation(err) {
		return newCancelledError(cs, err)
	}
	return err
}

// computeSnapshotProducer returns the producerFunc for an any-branch
// entry.
func (w *Workspace) computeSnapshotProducer(assets AssetProvider, cs Checksum) producerFunc {
	return func(ctx context.Context) (Snapshot, error) {
		return w.computeSnapshot(ctx, assets, cs)
	}
}

// promotingProducer returns the producerFunc for a primary-branch entry:
// its job is solely to call TryUpdateCurrentSolution with the
// already-materialized snapshot from the any-branch side, recording
// whether that call actually advanced currentVersion into promotion
// before returning (and therefore before task.done closes).
func (w *Workspace) promotingProducer(snap Snapshot, version int64, promotion *promotionOutcome) producerFunc {
	return func(ctx context.Context) (Snapshot, error) {
		effective, updated := w.TryUpdateCurrentSolution(snap, version)
		promotion.updated = updated
		return effective, nil
	}
}

// TryUpdateCurrentSolution promotes a candidate snapshot: under lock, if
// version <= currentVersion, no mutation occurs. Otherwise currentVersion
// is advanced and the new snapshot installed, with a "solution added" or
// "solution changed" event depending on whether solution identity or
// primary file path changed.
func (w *Workspace) TryUpdateCurrentSolution(newSnapshot Snapshot, version int64) (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if version <= w.currentVersion {
		return newSnapshot, false
	}

	w.currentVersion = version

	kind := changeChanged
	if w.current == nil ||
		w.current.SolutionID() != newSnapshot.SolutionID() ||
		w.current.PrimaryURI() != newSnapshot.PrimaryURI() {
		kind = changeAdded
	}

	if kind == changeAdded && w.current != nil && w.host != nil {
		w.host.ClearSolutionData()
	}

	w.current = newSnapshot

	if w.host != nil {
		switch kind {
		case changeAdded:
			w.host.OnSolutionAdded(newSnapshot)
		case changeChanged:
			w.host.OnSolutionChanged(newSnapshot)
		}
	}

	if w.logger != nil {
		w.logger.WithField("version", version).Debug("promoted new primary solution")
	}

	return newSnapshot, true
}

// CurrentSnapshot returns the Workspace's current primary snapshot, if
// any has been promoted yet.
func (w *Workspace) CurrentSnapshot() (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil, false
	}
	return w.current, true
}

// CurrentVersion returns the Workspace's monotonic primary version.
func (w *Workspace) CurrentVersion() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentVersion
}

// Stats is a point-in-time snapshot of cache occupancy, exposed for
// diagnostics (e.g. the CLI's cache inspection command).
type Stats struct {
	AnyBranchEntries     int
	PrimaryBranchEntries int
	CurrentVersion       int64
	HasCurrentSolution   bool
}

func (w *Workspace) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		AnyBranchEntries:     len(w.anyBranch.entries),
		PrimaryBranchEntries: len(w.primaryBranch.entries),
		CurrentVersion:       w.currentVersion,
		HasCurrentSolution:   w.current != nil,
	}
}
