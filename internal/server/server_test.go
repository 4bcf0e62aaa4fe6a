package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/concepts/internal/comm"
	"github.com/mesh-intelligence/concepts/internal/concept"
	"github.com/mesh-intelligence/concepts/internal/registry"
	"github.com/mesh-intelligence/concepts/internal/storage/memory"
	"github.com/mesh-intelligence/concepts/internal/storage/metrics"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

type testNode struct {
	srv     *httptest.Server
	manager *concept.Manager
	ownerID string
	reg     *registry.StoreRegistry
	items   *memory.Provider
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()
	ctx := context.Background()
	m := concept.NewManager(memory.New())
	ownerID, err := m.CreateOwner(ctx, "Alice")
	require.NoError(t, err)

	n := &testNode{
		manager: m,
		ownerID: ownerID,
		reg:     registry.NewStoreRegistry(memory.New()),
		items:   memory.New(),
	}
	s := New(Options{
		Comm:     comm.NewOwnerCommunication(m, ownerID),
		Registry: n.reg,
		Items:    n.items,
		Metrics:  metrics.NewCollector("concepts"),
	})
	n.srv = httptest.NewServer(s.Handler())
	t.Cleanup(n.srv.Close)
	return n
}

func (n *testNode) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, n.srv.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestHealthz(t *testing.T) {
	n := newTestNode(t)
	status, body := n.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestQueryKnownConcept(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()
	widget := types.NewConcept("Widget", "a widget", "t")
	_, err := n.manager.CreateConcept(ctx, widget)
	require.NoError(t, err)
	require.NoError(t, n.manager.AddTrackedConcept(ctx, n.ownerID, widget.ID, 0.9))

	status, body := n.do(t, http.MethodPost, "/query", `{"conceptName":"Widget"}`)
	require.Equal(t, http.StatusOK, status, body)

	var resp comm.ConceptResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, widget.ID, resp.ID)
	assert.False(t, resp.IsGuess)
	assert.Equal(t, 0.9, resp.AlignmentFactor)
	assert.NotContains(t, body, "upgradeDescription")
}

func TestQueryUnknownConceptIsGuess(t *testing.T) {
	n := newTestNode(t)
	status, body := n.do(t, http.MethodPost, "/query", `{"conceptName":"Gizmo"}`)
	require.Equal(t, http.StatusOK, status, body)

	var resp comm.ConceptResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.True(t, resp.IsGuess)
	assert.Equal(t, "Generated description for Gizmo", resp.Description)
	assert.NotEmpty(t, resp.UpgradeDescription)
}

func TestQueryBadRequests(t *testing.T) {
	n := newTestNode(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"conceptName":`},
		{"missing name", `{}`},
		{"empty name", `{"conceptName":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := n.do(t, http.MethodPost, "/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, body, `"error"`)
		})
	}
}

func TestRegistryRoutes(t *testing.T) {
	n := newTestNode(t)

	status, body := n.do(t, http.MethodPost, "/register", `{"id":"o1","name":"Alice","endpoint":"http://alice:8080"}`)
	require.Equal(t, http.StatusCreated, status, body)

	status, body = n.do(t, http.MethodGet, "/owner/o1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"endpoint":"http://alice:8080"}`, body)

	status, _ = n.do(t, http.MethodGet, "/owner/ghost", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = n.do(t, http.MethodGet, "/owners", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":"o1","name":"Alice","endpoint":"http://alice:8080"}]`, body)

	status, body = n.do(t, http.MethodGet, "/owners/find?name=ALICE", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":"o1","name":"Alice","endpoint":"http://alice:8080"}`, body)

	status, _ = n.do(t, http.MethodGet, "/owners/find?name=carol", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = n.do(t, http.MethodGet, "/owners/find", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = n.do(t, http.MethodPost, "/register", `{"id":"o2","name":"Bob","endpoint":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestItemRoutes(t *testing.T) {
	n := newTestNode(t)

	status, body := n.do(t, http.MethodPut, "/items/a", `{"data":"alpha"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.JSONEq(t, `{"handle":"a"}`, body)

	status, body = n.do(t, http.MethodGet, "/items/a", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":"a","data":"alpha"}`, body)

	status, body = n.do(t, http.MethodGet, "/items", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ids":["a"]}`, body)

	status, _ = n.do(t, http.MethodDelete, "/items/a", "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = n.do(t, http.MethodDelete, "/items/a", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = n.do(t, http.MethodGet, "/items", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ids":[]}`, body)
}

func TestItemEscapedID(t *testing.T) {
	n := newTestNode(t)

	status, body := n.do(t, http.MethodPut, "/items/dir%2Fname%20x", `{"data":"v"}`)
	require.Equal(t, http.StatusOK, status, body)

	got, err := n.items.Retrieve(context.Background(), "dir/name x")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestMetricsEndpoint(t *testing.T) {
	n := newTestNode(t)
	n.do(t, http.MethodGet, "/healthz", "")

	status, body := n.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `concepts_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestUnmountedRoutes(t *testing.T) {
	srv := httptest.NewServer(New(Options{}).Handler())
	defer srv.Close()

	for _, path := range []string{"/owners", "/items", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}
