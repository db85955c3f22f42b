// Package testsolution provides hand-written test doubles for
// internal/solution's collaborator interfaces: configurable behavior, a
// recorded call history, and mutex-protected state safe for concurrent
// test use.
package testsolution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"solution-gateway/internal/solution"
)

// Snapshot is a trivial solution.Snapshot implementation keyed by an
// opaque id and a primary URI.
type Snapshot struct {
	ID      string
	Primary uri.URI
}

func (s *Snapshot) SolutionID() string  { return s.ID }
func (s *Snapshot) PrimaryURI() uri.URI { return s.Primary }

// NewSnapshot builds a Snapshot whose id and primary URI are both
// derived from cs, so distinct checksums never collide and a fixed
// checksum always rebuilds an equal snapshot.
func NewSnapshot(cs solution.Checksum) *Snapshot {
	return &Snapshot{ID: string(cs), Primary: uri.File(fmt.Sprintf("/mock/%s", cs))}
}

// AssetProvider is a configurable fake of solution.AssetProvider.
type AssetProvider struct {
	mu sync.Mutex

	// SyncDelay simulates latency in SynchronizeSolutionAssets.
	SyncDelay time.Duration
	// SyncErr, if non-nil, is returned by SynchronizeSolutionAssets for
	// every checksum.
	SyncErr error
	// InfoErr, if non-nil, is returned by CreateSolutionInfo.
	InfoErr error

	syncCalls []solution.Checksum
	infoCalls []solution.Checksum
}

func NewAssetProvider() *AssetProvider {
	return &AssetProvider{}
}

func (p *AssetProvider) SynchronizeSolutionAssets(ctx context.Context, cs solution.Checksum) error {
	p.mu.Lock()
	p.syncCalls = append(p.syncCalls, cs)
	delay := p.SyncDelay
	err := p.SyncErr
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (p *AssetProvider) CreateSolutionInfo(ctx context.Context, cs solution.Checksum) (*solution.SolutionInfo, error) {
	p.mu.Lock()
	p.infoCalls = append(p.infoCalls, cs)
	err := p.InfoErr
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &solution.SolutionInfo{
		Projects:  []protocol.WorkspaceFolder{{URI: string(uri.File(fmt.Sprintf("/mock/%s", cs))), Name: string(cs)}},
		Documents: nil,
	}, nil
}

func (p *AssetProvider) SyncCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.syncCalls)
}

// SolutionBuilder is a configurable fake of solution.SolutionBuilder.
type SolutionBuilder struct {
	mu sync.Mutex

	BuildErr error
	calls    []solution.Checksum
}

func NewSolutionBuilder() *SolutionBuilder {
	return &SolutionBuilder{}
}

func (b *SolutionBuilder) NewSolution(ctx context.Context, cs solution.Checksum, info *solution.SolutionInfo) (solution.Snapshot, error) {
	b.mu.Lock()
	b.calls = append(b.calls, cs)
	err := b.BuildErr
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return NewSnapshot(cs), nil
}

func (b *SolutionBuilder) BuildCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

// SolutionUpdater is a configurable fake of solution.SolutionUpdater.
// By default it reports every checksum as non-incremental, forcing
// callers through the bulk-sync path; set Incremental to true to
// exercise the rebase path instead.
type SolutionUpdater struct {
	mu sync.Mutex

	Incremental    bool
	IncrementalErr error
	RebaseErr      error

	probeCalls  []solution.Checksum
	rebaseCalls []solution.Checksum
}

func NewSolutionUpdater() *SolutionUpdater {
	return &SolutionUpdater{}
}

func (u *SolutionUpdater) IsIncrementalUpdate(ctx context.Context, cs solution.Checksum) (bool, error) {
	u.mu.Lock()
	u.probeCalls = append(u.probeCalls, cs)
	incremental, err := u.Incremental, u.IncrementalErr
	u.mu.Unlock()
	return incremental, err
}

func (u *SolutionUpdater) CreateSolution(ctx context.Context, cs solution.Checksum) (solution.Snapshot, error) {
	u.mu.Lock()
	u.rebaseCalls = append(u.rebaseCalls, cs)
	err := u.RebaseErr
	u.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return NewSnapshot(cs), nil
}

func (u *SolutionUpdater) RebaseCallCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.rebaseCalls)
}

// WorkspaceHost is a recording fake of solution.WorkspaceHost.
type WorkspaceHost struct {
	mu sync.Mutex

	Added   []solution.Snapshot
	Changed []solution.Snapshot
	Cleared int
}

func NewWorkspaceHost() *WorkspaceHost {
	return &WorkspaceHost{}
}

func (h *WorkspaceHost) OnSolutionAdded(newSnapshot solution.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Added = append(h.Added, newSnapshot)
}

func (h *WorkspaceHost) OnSolutionChanged(newSnapshot solution.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Changed = append(h.Changed, newSnapshot)
}

func (h *WorkspaceHost) ClearSolutionData() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Cleared++
}

// FatalErrorSink is a recording fake of solution.FatalErrorSink.
type FatalErrorSink struct {
	mu      sync.Mutex
	Reports []error
}

func NewFatalErrorSink() *FatalErrorSink {
	return &FatalErrorSink{}
}

func (s *FatalErrorSink) ReportFatalError(err error, fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reports = append(s.Reports, err)
}

func (s *FatalErrorSink) ReportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Reports)
}
