package comm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/concepts/internal/concept"
	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/storage/memory"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

type fixture struct {
	ctx     context.Context
	store   *memory.Provider
	manager *concept.Manager
	ownerID string
	comm    *OwnerCommunication
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	m := concept.NewManager(store)
	ownerID, err := m.CreateOwner(ctx, "Alice")
	require.NoError(t, err)
	return &fixture{
		ctx:     ctx,
		store:   store,
		manager: m,
		ownerID: ownerID,
		comm:    NewOwnerCommunication(m, ownerID),
	}
}

func (f *fixture) create(t *testing.T, c *types.Concept) *types.Concept {
	t.Helper()
	_, err := f.manager.CreateConcept(f.ctx, c)
	require.NoError(t, err)
	return c
}

func TestAlignmentFallsBackToOwnerEdge(t *testing.T) {
	f := newFixture(t)
	x := f.create(t, types.NewConcept("X", "the x", "t"))
	require.NoError(t, f.manager.AddTrackedConcept(f.ctx, f.ownerID, x.ID, 0.6))

	factor, err := f.comm.CalculateAlignmentFactor(f.ctx, x)
	require.NoError(t, err)
	assert.Equal(t, 0.6, factor)
}

func TestAlignmentForwardEdgeWins(t *testing.T) {
	f := newFixture(t)
	x := types.NewConcept("X", "the x", "t")
	x.AddAlignedConcept(f.ownerID, 0.9)
	f.create(t, x)
	require.NoError(t, f.manager.AddTrackedConcept(f.ctx, f.ownerID, x.ID, 0.6))

	factor, err := f.comm.CalculateAlignmentFactor(f.ctx, x)
	require.NoError(t, err)
	assert.Equal(t, 0.9, factor)
}

func TestAlignmentIgnoresEdgeToNonOwner(t *testing.T) {
	f := newFixture(t)
	plain := f.create(t, types.NewConcept("Plain", "", "t"))
	x := types.NewConcept("X", "", "t")
	x.AddAlignedConcept(plain.ID, 0.9)
	f.create(t, x)

	// Resolve as if the plain concept were the requesting owner.
	oc := NewOwnerCommunication(f.manager, plain.ID)
	factor, err := oc.CalculateAlignmentFactor(f.ctx, x)
	require.NoError(t, err)
	assert.Equal(t, 0.0, factor)
}

func TestAlignmentDefaultsToZero(t *testing.T) {
	f := newFixture(t)
	x := f.create(t, types.NewConcept("X", "", "t"))

	factor, err := f.comm.CalculateAlignmentFactor(f.ctx, x)
	require.NoError(t, err)
	assert.Equal(t, 0.0, factor)

	// An owner that does not exist contributes nothing either.
	oc := NewOwnerCommunication(f.manager, "ghost")
	factor, err = oc.CalculateAlignmentFactor(f.ctx, x)
	require.NoError(t, err)
	assert.Equal(t, 0.0, factor)
}

func TestQueryGuessFallback(t *testing.T) {
	f := newFixture(t)

	resps, err := f.comm.QueryConceptsFromOtherOwner(f.ctx, []ConceptQuery{{ID: "unknown-id", Name: "Gizmo"}})
	require.NoError(t, err)
	require.Len(t, resps, 1)

	r := resps[0]
	assert.True(t, r.IsGuess)
	assert.Equal(t, 0.0, r.AlignmentFactor)
	assert.Equal(t, "unknown-id", r.ID)
	assert.Equal(t, "Gizmo", r.Name)
	assert.Equal(t, "Generated description for Gizmo", r.Description)
	assert.Equal(t, "Upgraded description for Gizmo: Generated description for Gizmo", r.UpgradeDescription)
}

func TestQueryUpgradeThreshold(t *testing.T) {
	f := newFixture(t)
	strong := f.create(t, types.NewConcept("Strong", "well aligned", "t"))
	weak := f.create(t, types.NewConcept("Weak", "loosely aligned", "t"))
	edge := f.create(t, types.NewConcept("Edge", "exactly at threshold", "t"))
	require.NoError(t, f.manager.AddTrackedConcept(f.ctx, f.ownerID, strong.ID, 0.95))
	require.NoError(t, f.manager.AddTrackedConcept(f.ctx, f.ownerID, weak.ID, 0.3))
	require.NoError(t, f.manager.AddTrackedConcept(f.ctx, f.ownerID, edge.ID, UpgradeThreshold))

	resps, err := f.comm.QueryConceptsFromOtherOwner(f.ctx, []ConceptQuery{
		{ID: strong.ID, Name: strong.Name},
		{ID: weak.ID, Name: weak.Name},
		{ID: edge.ID, Name: edge.Name},
	})
	require.NoError(t, err)
	require.Len(t, resps, 3)

	assert.Equal(t, strong.ID, resps[0].ID)
	assert.False(t, resps[0].IsGuess)
	assert.Equal(t, 0.95, resps[0].AlignmentFactor)
	assert.Empty(t, resps[0].UpgradeDescription)

	assert.Equal(t, weak.ID, resps[1].ID)
	assert.Equal(t, 0.3, resps[1].AlignmentFactor)
	assert.Equal(t, "Upgraded description for Weak: loosely aligned", resps[1].UpgradeDescription)

	assert.Equal(t, edge.ID, resps[2].ID)
	assert.Empty(t, resps[2].UpgradeDescription)
}

func TestQueryFailureFailsBatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Store(f.ctx, "corrupt", "{broken")
	require.NoError(t, err)

	_, err = f.comm.QueryConceptsFromOtherOwner(f.ctx, []ConceptQuery{
		{ID: "unknown", Name: "Fine"},
		{ID: "corrupt", Name: "Broken"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrDeserialization), "got %v", err)
}

func TestQueryEmptyBatch(t *testing.T) {
	f := newFixture(t)
	resps, err := f.comm.QueryConceptsFromOtherOwner(f.ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, resps)
}

func TestAnswerByName(t *testing.T) {
	f := newFixture(t)
	x := f.create(t, types.NewConcept("Widget", "a widget", "t"))
	require.NoError(t, f.manager.AddTrackedConcept(f.ctx, f.ownerID, x.ID, 0.85))

	known, err := f.comm.AnswerByName(f.ctx, "Widget")
	require.NoError(t, err)
	assert.Equal(t, x.ID, known.ID)
	assert.False(t, known.IsGuess)
	assert.Equal(t, 0.85, known.AlignmentFactor)

	guess, err := f.comm.AnswerByName(f.ctx, "Sprocket")
	require.NoError(t, err)
	assert.True(t, guess.IsGuess)
	assert.NotEmpty(t, guess.ID)
	assert.Equal(t, "Sprocket", guess.Name)
}
