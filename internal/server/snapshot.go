package server

import (
	"context"
	"fmt"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"solution-gateway/internal/logging"
	"solution-gateway/internal/solution"
)

// workspaceSnapshot is the gateway's concrete solution.Snapshot: the
// checksum it was built for plus the project/document layout from its
// manifest. Immutable after construction.
type workspaceSnapshot struct {
	checksum  solution.Checksum
	primary   uri.URI
	projects  []protocol.WorkspaceFolder
	documents int
}

func (s *workspaceSnapshot) SolutionID() string  { return string(s.checksum) }
func (s *workspaceSnapshot) PrimaryURI() uri.URI { return s.primary }

func (s *workspaceSnapshot) ProjectCount() int  { return len(s.projects) }
func (s *workspaceSnapshot) DocumentCount() int { return s.documents }

// snapshotBuilder implements solution.SolutionBuilder: it creates the
// base solution for a checksum and adds each project folder from the
// manifest. The first project's folder doubles as the snapshot's
// primary URI.
type snapshotBuilder struct {
	logger *logging.StructuredLogger
}

func (b *snapshotBuilder) NewSolution(ctx context.Context, cs solution.Checksum, info *solution.SolutionInfo) (solution.Snapshot, error) {
	if info == nil || len(info.Projects) == 0 {
		return nil, fmt.Errorf("solution manifest for %s has no projects", cs)
	}

	snap := &workspaceSnapshot{
		checksum:  cs,
		primary:   uri.URI(info.Projects[0].URI),
		projects:  append([]protocol.WorkspaceFolder(nil), info.Projects...),
		documents: len(info.Documents),
	}

	if b.logger != nil {
		b.logger.WithFields(map[string]interface{}{
			"checksum":  string(cs),
			"projects":  len(info.Projects),
			"documents": len(info.Documents),
		}).Debug("assembled solution snapshot")
	}

	return snap, nil
}
