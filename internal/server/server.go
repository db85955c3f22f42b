// Package server runs the solution gateway: it owns the workspace
// solution cache, wires it to the client host's asset service, and
// serves the JSON-RPC surface feature clients call.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"solution-gateway/internal/assets"
	"solution-gateway/internal/config"
	"solution-gateway/internal/logging"
	"solution-gateway/internal/solution"
	"solution-gateway/internal/transport"
)

// Gateway owns the solution workspace and its HTTP front end.
type Gateway struct {
	config *config.GatewayConfig
	logger *logging.StructuredLogger

	workspace     *solution.Workspace
	assetProvider solution.AssetProvider

	httpServer *http.Server
	cancel     context.CancelFunc
}

// hostHandler observes workspace-change events. The gateway has no
// per-solution auxiliary state of its own to clear; the events are
// surfaced as structured log lines for operators.
type hostHandler struct {
	logger *logging.StructuredLogger
}

func (h *hostHandler) OnSolutionAdded(newSnapshot solution.Snapshot) {
	if h.logger != nil {
		h.logger.WithField("solution_id", newSnapshot.SolutionID()).Info("primary solution added")
	}
}

func (h *hostHandler) OnSolutionChanged(newSnapshot solution.Snapshot) {
	if h.logger != nil {
		h.logger.WithField("solution_id", newSnapshot.SolutionID()).Info("primary solution changed")
	}
}

func (h *hostHandler) ClearSolutionData() {
	if h.logger != nil {
		h.logger.Debug("primary solution identity changed, prior solution data is stale")
	}
}

// sinkAdapter reports fatal materialization errors through the
// structured logger.
type sinkAdapter struct {
	logger *logging.StructuredLogger
}

func (s *sinkAdapter) ReportFatalError(err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.WithFields(fields).WithError(err).Error("solution materialization failed")
	}
}

// NewGateway wires the production collaborator set: a remote asset
// provider and updater over tr, and the gateway's own snapshot builder.
func NewGateway(cfg *config.GatewayConfig, logger *logging.StructuredLogger, tr transport.AssetTransport) *Gateway {
	requestTimeout := cfg.AssetSource.RequestTimeoutDuration()

	builder := &snapshotBuilder{logger: logger}
	provider := assets.NewRemoteAssetProvider(tr, requestTimeout, logger)

	g := &Gateway{}
	updater := assets.NewRemoteSolutionUpdater(tr, builder, func() (solution.Snapshot, bool) {
		return g.workspace.CurrentSnapshot()
	}, requestTimeout, logger)

	g.init(cfg, logger, provider, updater, builder)
	return g
}

// newGatewayWithCollaborators is the seam tests use to substitute fakes
// for the remote asset layer.
func newGatewayWithCollaborators(cfg *config.GatewayConfig, logger *logging.StructuredLogger, provider solution.AssetProvider, updater solution.SolutionUpdater, builder solution.SolutionBuilder) *Gateway {
	g := &Gateway{}
	g.init(cfg, logger, provider, updater, builder)
	return g
}

func (g *Gateway) init(cfg *config.GatewayConfig, logger *logging.StructuredLogger, provider solution.AssetProvider, updater solution.SolutionUpdater, builder solution.SolutionBuilder) {
	ctx, cancel := context.WithCancel(context.Background())

	g.config = cfg
	g.logger = logger
	g.cancel = cancel
	g.assetProvider = provider

	opts := []solution.Option{
		solution.WithFatalErrorSink(&sinkAdapter{logger: logger}),
	}
	if cfg.SolutionCache.EnableLogging && logger != nil {
		cacheLogger := logger.
			WithLevel(logging.ParseLevel(cfg.SolutionCache.MaterializationLogLevel)).
			WithField("component", "solution-cache")
		opts = append(opts, solution.WithLogger(cacheLogger))
	}

	g.workspace = solution.NewWorkspace(ctx, &hostHandler{logger: logger}, updater, builder, opts...)
}

// Workspace exposes the gateway's solution cache.
func (g *Gateway) Workspace() *solution.Workspace { return g.workspace }

// Start serves the JSON-RPC endpoint until ctx is cancelled or Stop is
// called. It blocks.
func (g *Gateway) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/jsonrpc", g.handleJSONRPC)
	mux.HandleFunc("/health", g.handleHealth)

	g.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", g.config.Port),
		Handler: mux,
	}

	if g.logger != nil {
		g.logger.WithField("port", g.config.Port).Info("solution gateway listening")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		return g.Stop()
	}
}

// Stop shuts the HTTP server down and cancels every in-flight
// materialization.
func (g *Gateway) Stop() error {
	defer g.cancel()

	if g.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if g.logger != nil {
		g.logger.Info("solution gateway shutting down")
	}
	return g.httpServer.Shutdown(shutdownCtx)
}
