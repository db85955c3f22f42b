// Package solution implements the remote workspace solution cache: the
// subsystem that materializes checksum-identified solution snapshots,
// hands them to concurrent feature operations, and keeps the hottest
// snapshot alive so short-gap repeated requests reuse the same
// materialized state.
package solution

import (
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Checksum is an opaque, equality-comparable content hash identifying a
// logical solution snapshot. The asset layer is responsible for its wire
// representation; this package only ever compares and maps on it.
type Checksum string

// Snapshot is an immutable view of project/file state, opaque to this
// package beyond the two facts TryUpdateCurrentSolution needs to decide
// whether a promotion is a fresh "solution added" or an in-place
// "solution changed": its logical identity and its primary document.
type Snapshot interface {
	SolutionID() string
	PrimaryURI() uri.URI
}

// SolutionInfo is the bulk-sync manifest produced by
// AssetProvider.CreateSolutionInfo: the project folders and documents a
// from-scratch solution build must assemble. Modeled on real LSP wire
// types rather than an ad hoc struct so the bulk-sync path in
// computeSnapshot exercises the same document/folder shapes the rest of
// this codebase's LSP plumbing uses.
type SolutionInfo struct {
	Projects  []protocol.WorkspaceFolder
	Documents []protocol.TextDocumentItem
}

// changeKind distinguishes the two WorkspaceHost notifications
// TryUpdateCurrentSolution can emit.
type changeKind int

const (
	changeAdded changeKind = iota
	changeChanged
)

// noVersion is the sentinel Workspace.currentVersion starts at: strictly
// less than any legal version so the first promotion always succeeds.
const noVersion int64 = -1
