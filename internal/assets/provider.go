// Package assets implements the solution cache's collaborator
// interfaces against the client host's asset service: asset
// synchronization, manifest retrieval, and incremental-update probes
// all travel over one transport.AssetTransport connection.
package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.lsp.dev/protocol"

	"solution-gateway/internal/logging"
	"solution-gateway/internal/solution"
	"solution-gateway/internal/transport"
)

// JSON-RPC methods of the client host's asset service.
const (
	MethodSynchronizeAssets   = "solution/synchronizeAssets"
	MethodSolutionInfo        = "solution/solutionInfo"
	MethodIsIncrementalUpdate = "solution/isIncrementalUpdate"
	MethodRebaseSolutionInfo  = "solution/rebaseSolutionInfo"
)

type checksumParams struct {
	Checksum string `json:"checksum"`
}

type rebaseParams struct {
	Checksum     string `json:"checksum"`
	BaseSolution string `json:"baseSolution"`
}

type solutionInfoResult struct {
	Projects  []protocol.WorkspaceFolder  `json:"projects"`
	Documents []protocol.TextDocumentItem `json:"documents,omitempty"`
}

type incrementalResult struct {
	Incremental bool `json:"incremental"`
}

// RemoteAssetProvider is solution.AssetProvider backed by the client
// host's asset service.
type RemoteAssetProvider struct {
	transport transport.AssetTransport
	timeout   time.Duration
	logger    *logging.StructuredLogger
}

func NewRemoteAssetProvider(tr transport.AssetTransport, timeout time.Duration, logger *logging.StructuredLogger) *RemoteAssetProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteAssetProvider{transport: tr, timeout: timeout, logger: logger}
}

func (p *RemoteAssetProvider) SynchronizeSolutionAssets(ctx context.Context, cs solution.Checksum) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	_, err := p.transport.SendRequest(ctx, MethodSynchronizeAssets, checksumParams{Checksum: string(cs)})
	if err != nil {
		return fmt.Errorf("asset synchronization for %s failed: %w", cs, err)
	}

	if p.logger != nil {
		p.logger.WithField("checksum", string(cs)).WithDuration(time.Since(start)).Debug("solution assets synchronized")
	}
	return nil
}

func (p *RemoteAssetProvider) CreateSolutionInfo(ctx context.Context, cs solution.Checksum) (*solution.SolutionInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := p.transport.SendRequest(ctx, MethodSolutionInfo, checksumParams{Checksum: string(cs)})
	if err != nil {
		return nil, fmt.Errorf("solution info for %s failed: %w", cs, err)
	}

	var result solutionInfoResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("invalid solution info payload for %s: %w", cs, err)
	}

	return &solution.SolutionInfo{
		Projects:  result.Projects,
		Documents: result.Documents,
	}, nil
}

// RemoteSolutionUpdater is solution.SolutionUpdater backed by the asset
// service: the client host decides whether the gap between the current
// primary solution and the target checksum is small enough to rebase,
// and if so serves the rebased manifest, which the local builder turns
// into a snapshot without a bulk sync.
type RemoteSolutionUpdater struct {
	transport transport.AssetTransport
	builder   solution.SolutionBuilder
	current   func() (solution.Snapshot, bool)
	timeout   time.Duration
	logger    *logging.StructuredLogger
}

func NewRemoteSolutionUpdater(tr transport.AssetTransport, builder solution.SolutionBuilder, current func() (solution.Snapshot, bool), timeout time.Duration, logger *logging.StructuredLogger) *RemoteSolutionUpdater {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteSolutionUpdater{transport: tr, builder: builder, current: current, timeout: timeout, logger: logger}
}

func (u *RemoteSolutionUpdater) IsIncrementalUpdate(ctx context.Context, cs solution.Checksum) (bool, error) {
	base, ok := u.current()
	if !ok {
		// Nothing to rebase from; the first materialization in a
		// process is always a bulk sync.
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	raw, err := u.transport.SendRequest(ctx, MethodIsIncrementalUpdate, rebaseParams{
		Checksum:     string(cs),
		BaseSolution: base.SolutionID(),
	})
	if err != nil {
		return false, fmt.Errorf("incremental-update probe for %s failed: %w", cs, err)
	}

	var result incrementalResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return false, fmt.Errorf("invalid incremental-update payload for %s: %w", cs, err)
	}

	return result.Incremental, nil
}

func (u *RemoteSolutionUpdater) CreateSolution(ctx context.Context, cs solution.Checksum) (solution.Snapshot, error) {
	base, ok := u.current()
	if !ok {
		return nil, fmt.Errorf("no current solution to rebase onto %s", cs)
	}

	reqCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	raw, err := u.transport.SendRequest(reqCtx, MethodRebaseSolutionInfo, rebaseParams{
		Checksum:     string(cs),
		BaseSolution: base.SolutionID(),
	})
	if err != nil {
		return nil, fmt.Errorf("rebase manifest for %s failed: %w", cs, err)
	}

	var result solutionInfoResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("invalid rebase payload for %s: %w", cs, err)
	}

	snap, err := u.builder.NewSolution(ctx, cs, &solution.SolutionInfo{
		Projects:  result.Projects,
		Documents: result.Documents,
	})
	if err != nil {
		return nil, err
	}

	if u.logger != nil {
		u.logger.WithFields(map[string]interface{}{
			"checksum": string(cs),
			"base":     base.SolutionID(),
		}).Debug("rebased solution incrementally")
	}
	return snap, nil
}
