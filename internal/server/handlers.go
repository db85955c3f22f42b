package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"solution-gateway/internal/solution"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603

	// Application codes
	MaterializationFailed = -32010
	RequestCancelled      = -32011
)

const (
	JSONRPCVersion = "2.0"
)

// Gateway methods
const (
	MethodWorkspaceSolution      = "workspace/solution"
	MethodWorkspaceUpdatePrimary = "workspace/updatePrimary"
	MethodCacheStats             = "cache/stats"
)

type solutionParams struct {
	Checksum string `json:"checksum"`
}

type updatePrimaryParams struct {
	Checksum string `json:"checksum"`
	Version  int64  `json:"version"`
}

// solutionSummary is what feature clients get back: enough to address
// follow-up operations at the materialized snapshot.
type solutionSummary struct {
	SolutionID string `json:"solutionId"`
	PrimaryURI string `json:"primaryUri"`
	Projects   int    `json:"projects,omitempty"`
	Documents  int    `json:"documents,omitempty"`
}

type updatePrimaryResult struct {
	SolutionID     string `json:"solutionId"`
	CurrentVersion int64  `json:"currentVersion"`
}

type cacheStatsResult struct {
	AnyBranchEntries     int   `json:"anyBranchEntries"`
	PrimaryBranchEntries int   `json:"primaryBranchEntries"`
	CurrentVersion       int64 `json:"currentVersion"`
	HasCurrentSolution   bool  `json:"hasCurrentSolution"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	stats := g.workspace.Stats()
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":             "ok",
		"currentVersion":     stats.CurrentVersion,
		"hasPrimarySolution": stats.HasCurrentSolution,
	})
}

func (g *Gateway) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, &JSONRPCResponse{
			JSONRPC: JSONRPCVersion,
			Error:   &RPCError{Code: ParseError, Message: "failed to parse request"},
		})
		return
	}

	start := time.Now()
	resp := g.dispatch(r, &req)
	resp.JSONRPC = JSONRPCVersion
	resp.ID = req.ID

	if g.logger != nil {
		g.logger.WithFields(map[string]interface{}{
			"method":  req.Method,
			"success": resp.Error == nil,
		}).WithDuration(time.Since(start)).Debug("request completed")
	}

	writeResponse(w, resp)
}

func (g *Gateway) dispatch(r *http.Request, req *JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case MethodWorkspaceSolution:
		return g.handleWorkspaceSolution(r, req)
	case MethodWorkspaceUpdatePrimary:
		return g.handleUpdatePrimary(r, req)
	case MethodCacheStats:
		return g.handleCacheStats()
	default:
		return &JSONRPCResponse{
			Error: &RPCError{Code: MethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)},
		}
	}
}

func (g *Gateway) handleWorkspaceSolution(r *http.Request, req *JSONRPCRequest) *JSONRPCResponse {
	var params solutionParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Checksum == "" {
		return &JSONRPCResponse{
			Error: &RPCError{Code: InvalidParams, Message: "checksum is required"},
		}
	}

	_, summary, err := solution.RunWithSolution(r.Context(), g.workspace, g.assetProvider,
		solution.Checksum(params.Checksum), summarizeSnapshot)
	if err != nil {
		return &JSONRPCResponse{Error: classifyError(err)}
	}

	return &JSONRPCResponse{Result: summary}
}

func (g *Gateway) handleUpdatePrimary(r *http.Request, req *JSONRPCRequest) *JSONRPCResponse {
	var params updatePrimaryParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Checksum == "" {
		return &JSONRPCResponse{
			Error: &RPCError{Code: InvalidParams, Message: "checksum and version are required"},
		}
	}

	if err := g.workspace.UpdatePrimaryBranch(r.Context(), g.assetProvider,
		solution.Checksum(params.Checksum), params.Version); err != nil {
		return &JSONRPCResponse{Error: classifyError(err)}
	}

	result := updatePrimaryResult{CurrentVersion: g.workspace.CurrentVersion()}
	if current, ok := g.workspace.CurrentSnapshot(); ok {
		result.SolutionID = current.SolutionID()
	}

	return &JSONRPCResponse{Result: result}
}

func (g *Gateway) handleCacheStats() *JSONRPCResponse {
	stats := g.workspace.Stats()
	return &JSONRPCResponse{Result: cacheStatsResult{
		AnyBranchEntries:     stats.AnyBranchEntries,
		PrimaryBranchEntries: stats.PrimaryBranchEntries,
		CurrentVersion:       stats.CurrentVersion,
		HasCurrentSolution:   stats.HasCurrentSolution,
	}}
}

func summarizeSnapshot(snap solution.Snapshot) (solutionSummary, error) {
	summary := solutionSummary{
		SolutionID: snap.SolutionID(),
		PrimaryURI: string(snap.PrimaryURI()),
	}
	if ws, ok := snap.(*workspaceSnapshot); ok {
		summary.Projects = ws.ProjectCount()
		summary.Documents = ws.DocumentCount()
	}
	return summary, nil
}

func classifyError(err error) *RPCError {
	var cacheErr *solution.CacheError
	if errors.As(err, &cacheErr) {
		switch cacheErr.Kind {
		case solution.ErrKindCancelled:
			return &RPCError{Code: RequestCancelled, Message: cacheErr.Error()}
		default:
			return &RPCError{Code: MaterializationFailed, Message: cacheErr.Error()}
		}
	}
	return &RPCError{Code: InternalError, Message: err.Error()}
}

func writeResponse(w http.ResponseWriter, resp *JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
