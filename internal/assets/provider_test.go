package assets

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"solution-gateway/internal/solution"
	"solution-gateway/internal/solution/testsolution"
)

// fakeTransport answers SendRequest from a method -> response table.
type fakeTransport struct {
	mu       sync.Mutex
	requests []fakeRequest

	responses map[string]json.RawMessage
	errs      map[string]error
}

type fakeRequest struct {
	method string
	params interface{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		responses: make(map[string]json.RawMessage),
		errs:      make(map[string]error),
	}
}

func (f *fakeTransport) Start(ctx context.Context) error { return nil }
func (f *fakeTransport) Stop() error                     { return nil }
func (f *fakeTransport) IsActive() bool                  { return true }

func (f *fakeTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	return nil
}

func (f *fakeTransport) SendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, fakeRequest{method: method, params: params})
	resp, err := f.responses[method], f.errs[method]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *fakeTransport) requestCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.method == method {
			n++
		}
	}
	return n
}

func TestSynchronizeSolutionAssets(t *testing.T) {
	tr := newFakeTransport()
	tr.responses[MethodSynchronizeAssets] = json.RawMessage(`{}`)

	p := NewRemoteAssetProvider(tr, time.Second, nil)
	require.NoError(t, p.SynchronizeSolutionAssets(context.Background(), "cs-1"))
	assert.Equal(t, 1, tr.requestCount(MethodSynchronizeAssets))
}

func TestSynchronizeSolutionAssetsError(t *testing.T) {
	tr := newFakeTransport()
	tr.errs[MethodSynchronizeAssets] = errors.New("connection reset")

	p := NewRemoteAssetProvider(tr, time.Second, nil)
	err := p.SynchronizeSolutionAssets(context.Background(), "cs-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cs-1")
}

func TestCreateSolutionInfo(t *testing.T) {
	tr := newFakeTransport()
	tr.responses[MethodSolutionInfo] = json.RawMessage(`{
		"projects": [{"uri": "file:///work/app", "name": "app"}],
		"documents": [{"uri": "file:///work/app/main.go", "languageId": "go", "version": 1, "text": "package main"}]
	}`)

	p := NewRemoteAssetProvider(tr, time.Second, nil)
	info, err := p.CreateSolutionInfo(context.Background(), "cs-1")
	require.NoError(t, err)

	require.Len(t, info.Projects, 1)
	assert.Equal(t, "app", info.Projects[0].Name)
	assert.Equal(t, "file:///work/app", info.Projects[0].URI)
	require.Len(t, info.Documents, 1)
	assert.Equal(t, protocol.LanguageIdentifier("go"), info.Documents[0].LanguageID)
}

func TestCreateSolutionInfoMalformedPayload(t *testing.T) {
	tr := newFakeTransport()
	tr.responses[MethodSolutionInfo] = json.RawMessage(`"not an object"`)

	p := NewRemoteAssetProvider(tr, time.Second, nil)
	_, err := p.CreateSolutionInfo(context.Background(), "cs-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid solution info payload")
}

func noCurrent() (solution.Snapshot, bool) { return nil, false }

func currentSnapshot(cs solution.Checksum) func() (solution.Snapshot, bool) {
	snap := testsolution.NewSnapshot(cs)
	return func() (solution.Snapshot, bool) { return snap, true }
}

func TestIsIncrementalUpdateWithoutCurrentSolution(t *testing.T) {
	tr := newFakeTransport()

	u := NewRemoteSolutionUpdater(tr, testsolution.NewSolutionBuilder(), noCurrent, time.Second, nil)
	incremental, err := u.IsIncrementalUpdate(context.Background(), "cs-2")
	require.NoError(t, err)
	assert.False(t, incremental)
	assert.Equal(t, 0, tr.requestCount(MethodIsIncrementalUpdate), "no probe without a base solution")
}

func TestIsIncrementalUpdateProbesRemote(t *testing.T) {
	tr := newFakeTransport()
	tr.responses[MethodIsIncrementalUpdate] = json.RawMessage(`{"incremental": true}`)

	u := NewRemoteSolutionUpdater(tr, testsolution.NewSolutionBuilder(), currentSnapshot("cs-base"), time.Second, nil)
	incremental, err := u.IsIncrementalUpdate(context.Background(), "cs-2")
	require.NoError(t, err)
	assert.True(t, incremental)

	params, ok := tr.requests[0].params.(rebaseParams)
	require.True(t, ok)
	assert.Equal(t, "cs-2", params.Checksum)
	assert.Equal(t, "cs-base", params.BaseSolution)
}

func TestCreateSolutionBuildsFromRebaseManifest(t *testing.T) {
	tr := newFakeTransport()
	tr.responses[MethodRebaseSolutionInfo] = json.RawMessage(`{
		"projects": [{"uri": "file:///work/app", "name": "app"}]
	}`)

	builder := testsolution.NewSolutionBuilder()
	u := NewRemoteSolutionUpdater(tr, builder, currentSnapshot("cs-base"), time.Second, nil)

	snap, err := u.CreateSolution(context.Background(), "cs-2")
	require.NoError(t, err)
	assert.Equal(t, "cs-2", snap.SolutionID())
	assert.Equal(t, 1, builder.BuildCallCount())
}

func TestCreateSolutionWithoutCurrentSolutionFails(t *testing.T) {
	tr := newFakeTransport()
	u := NewRemoteSolutionUpdater(tr, testsolution.NewSolutionBuilder(), noCurrent, time.Second, nil)

	_, err := u.CreateSolution(context.Background(), "cs-2")
	require.Error(t, err)
}
