// Package concept orchestrates concepts and owners on top of a
// StorageProvider.
//
// Ownership is a predicate over the type graph: a concept is an owner when
// its TypeID is the id of the well-known "Owner" concept. Initialize resolves
// that id (and the root "Type" concept) once per Manager, creating them on
// first use.
package concept

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// Names of the bootstrap concepts.
const (
	TypeConceptName  = "Type"
	OwnerConceptName = "Owner"
)

// DefaultFanout bounds concurrent retrievals in ListAllConcepts.
const DefaultFanout = 16

const historyHint = "set `backend: cas` in config.yaml to keep concept history"

// WellKnownTypes holds the ids of the bootstrap type concepts.
type WellKnownTypes struct {
	TypeID      string
	OwnerTypeID string
}

// IsOwner reports whether c is typed as an owner.
func (w WellKnownTypes) IsOwner(c *types.Concept) bool {
	return c != nil && w.OwnerTypeID != "" && c.TypeID == w.OwnerTypeID
}

// Manager creates, reads, updates and removes concepts and owners.
type Manager struct {
	store  types.StorageProvider
	log    *zap.SugaredLogger
	fanout int

	mu    sync.Mutex
	known *WellKnownTypes
}

// Option configures a Manager.
type Option func(*Manager)

// WithFanout sets the concurrency limit for batch retrievals.
func WithFanout(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.fanout = n
		}
	}
}

// NewManager returns a manager over store. Initialize runs lazily on the
// first owner-related call.
func NewManager(store types.StorageProvider, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		log:    logger.ComponentLogger("concept.manager"),
		fanout: DefaultFanout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize resolves the well-known type ids, creating the "Type" and
// "Owner" concepts when storage has none. Repeated calls return the cached
// result without touching storage.
func (m *Manager) Initialize(ctx context.Context) (WellKnownTypes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.known != nil {
		return *m.known, nil
	}

	typeConcept, err := m.FindConceptByName(ctx, TypeConceptName)
	if err != nil {
		return WellKnownTypes{}, errors.Wrap(err, "look up Type concept")
	}
	if typeConcept == nil {
		typeConcept = types.NewConcept(TypeConceptName, "The type of all types", "")
		// The root of the type graph is its own type.
		typeConcept.TypeID = typeConcept.ID
		if _, err := m.CreateConcept(ctx, typeConcept); err != nil {
			return WellKnownTypes{}, errors.Wrap(err, "create Type concept")
		}
		m.log.Infow("Created Type concept", logger.FieldConceptID, typeConcept.ID)
	}

	ownerType, err := m.FindConceptByName(ctx, OwnerConceptName)
	if err != nil {
		return WellKnownTypes{}, errors.Wrap(err, "look up Owner concept")
	}
	if ownerType == nil {
		ownerType = types.NewConcept(OwnerConceptName, "The type of owners", typeConcept.ID)
		if _, err := m.CreateConcept(ctx, ownerType); err != nil {
			return WellKnownTypes{}, errors.Wrap(err, "create Owner concept")
		}
		m.log.Infow("Created Owner concept", logger.FieldConceptID, ownerType.ID)
	}

	m.known = &WellKnownTypes{TypeID: typeConcept.ID, OwnerTypeID: ownerType.ID}
	return *m.known, nil
}

// CreateOwner stores a new owner concept and returns its id.
func (m *Manager) CreateOwner(ctx context.Context, name string) (string, error) {
	known, err := m.Initialize(ctx)
	if err != nil {
		return "", err
	}
	owner := types.NewConcept(name, ownerDescription(name), known.OwnerTypeID)
	return m.CreateConcept(types.WithChangeMessage(ctx, ownerMessage(name)), owner)
}

// RegisterOwner stores an owner concept whose id is externalID, recording the
// id in the peerId property.
func (m *Manager) RegisterOwner(ctx context.Context, name, externalID string) (string, error) {
	if externalID == "" {
		return "", errors.Wrap(types.ErrInvalidArgument, "external id must not be empty")
	}
	known, err := m.Initialize(ctx)
	if err != nil {
		return "", err
	}
	owner := types.NewConceptWithID(externalID, name, ownerDescription(name), known.OwnerTypeID)
	owner.SetProperty(types.PeerIDProperty, externalID)
	return m.CreateConcept(types.WithChangeMessage(ctx, ownerMessage(name)), owner)
}

func ownerDescription(name string) string {
	return "Owner: " + name
}

func ownerMessage(name string) string {
	return "Created owner: " + name
}

// CreateConcept stores c under c.ID and returns the id. No existence check
// is made.
func (m *Manager) CreateConcept(ctx context.Context, c *types.Concept) (string, error) {
	if c == nil {
		return "", errors.Wrap(types.ErrInvalidArgument, "concept is nil")
	}
	data, err := c.ToJSON()
	if err != nil {
		return "", err
	}
	ctx = types.WithChangeMessage(ctx, "Created concept: "+c.Name)
	if _, err := m.store.Store(ctx, c.ID, data); err != nil {
		return "", errors.Wrapf(err, "store concept %s", c.ID)
	}
	m.log.Debugw("Stored concept", logger.FieldConceptID, c.ID, logger.FieldName, c.Name)
	return c.ID, nil
}

// GetConcept returns the concept stored under id, or nil when there is none.
// Every other failure, including a record that does not decode, is returned.
func (m *Manager) GetConcept(ctx context.Context, id string) (*types.Concept, error) {
	data, err := m.store.Retrieve(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "retrieve concept %s", id)
	}
	c, err := types.FromJSON(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode concept %s", id)
	}
	return c, nil
}

// UpdateConcept overwrites the concept stored under id. Last write wins.
func (m *Manager) UpdateConcept(ctx context.Context, id string, c *types.Concept) error {
	if c == nil {
		return errors.Wrap(types.ErrInvalidArgument, "concept is nil")
	}
	data, err := c.ToJSON()
	if err != nil {
		return err
	}
	ctx = types.WithChangeMessage(ctx, "Updated concept: "+c.Name)
	if err := m.store.Update(ctx, id, data); err != nil {
		return errors.Wrapf(err, "update concept %s", id)
	}
	return nil
}

// IsOwner reports whether c is typed as an owner.
func (m *Manager) IsOwner(ctx context.Context, c *types.Concept) (bool, error) {
	known, err := m.Initialize(ctx)
	if err != nil {
		return false, err
	}
	return known.IsOwner(c), nil
}

// GetOwners returns the aligned-concept edges of c whose target is an owner.
// Edges to concepts that no longer exist are skipped.
func (m *Manager) GetOwners(ctx context.Context, c *types.Concept) ([]types.Alignment, error) {
	known, err := m.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	owners := []types.Alignment{}
	for _, edge := range c.AlignedConcepts {
		target, err := m.GetConcept(ctx, edge.ConceptID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			m.log.Debugw("Skipping dangling edge",
				logger.FieldConceptID, c.ID,
				"target", edge.ConceptID)
			continue
		}
		if known.IsOwner(target) {
			owners = append(owners, edge)
		}
	}
	return owners, nil
}

// AddTrackedConcept appends an aligned-concept edge from the owner to
// conceptID with the given weight and persists the owner.
func (m *Manager) AddTrackedConcept(ctx context.Context, ownerID, conceptID string, weight float64) error {
	owner, err := m.GetConcept(ctx, ownerID)
	if err != nil {
		return err
	}
	if owner == nil {
		return errors.Mark(
			errors.Wrapf(types.ErrNotFound, "Owner not found: %s", ownerID),
			types.ErrInvalidArgument,
		)
	}
	isOwner, err := m.IsOwner(ctx, owner)
	if err != nil {
		return err
	}
	if !isOwner {
		return errors.Wrapf(types.ErrInvalidArgument, "concept %s is not an owner", ownerID)
	}

	owner.AddAlignedConcept(conceptID, weight)
	if err := m.UpdateConcept(ctx, owner.ID, owner); err != nil {
		return err
	}
	m.log.Debugw("Tracked concept",
		logger.FieldOwnerID, ownerID,
		logger.FieldConceptID, conceptID,
		logger.FieldFactor, weight)
	return nil
}

// FindConceptByName returns the first concept named name in storage order,
// or nil.
func (m *Manager) FindConceptByName(ctx context.Context, name string) (*types.Concept, error) {
	all, err := m.ListAllConcepts(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

// RemoveConcept deletes the concept stored under id. It fails with
// ErrNotFound when id is absent and ErrInvalidArgument when the stored item
// is not a concept. Edges in other concepts that point at id are left as is.
func (m *Manager) RemoveConcept(ctx context.Context, id string) error {
	data, err := m.store.Retrieve(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "remove concept %s", id)
	}
	if _, err := types.FromJSON(data); err != nil {
		return errors.Mark(
			errors.Wrapf(err, "item %s is not a concept", id),
			types.ErrInvalidArgument,
		)
	}
	ctx = types.WithChangeMessage(ctx, "Deleted concept with ID: "+id)
	if err := m.store.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "remove concept %s", id)
	}
	m.log.Debugw("Removed concept", logger.FieldConceptID, id)
	return nil
}

// History returns the recorded versions of id, oldest first. Only stores
// that keep history support it; the rest fail with ErrUnsupported.
func (m *Manager) History(ctx context.Context, id string) ([]types.Version, error) {
	var (
		versions []types.Version
		err      error
	)
	if h, ok := m.store.(types.Historian); ok {
		versions, err = h.History(ctx, id)
	} else {
		err = types.ErrUnsupported
	}
	if errors.Is(err, types.ErrUnsupported) {
		return nil, errors.WithHint(errors.Wrap(err, "concept history"), historyHint)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "history of concept %s", id)
	}
	return versions, nil
}

// ListAllConcepts loads every concept in storage order. Items that vanish
// during the scan or do not decode are logged and skipped; any other
// failure aborts the scan.
func (m *Manager) ListAllConcepts(ctx context.Context) ([]*types.Concept, error) {
	ids, err := m.store.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list concept ids")
	}

	results := make([]*types.Concept, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.fanout)
	for i, id := range ids {
		g.Go(func() error {
			data, err := m.store.Retrieve(gctx, id)
			if errors.Is(err, types.ErrNotFound) {
				m.log.Warnw("Concept vanished during scan", logger.FieldConceptID, id)
				return nil
			}
			if err != nil {
				return errors.Wrapf(err, "retrieve concept %s", id)
			}
			c, err := types.FromJSON(data)
			if err != nil {
				m.log.Warnw("Skipping undecodable item",
					logger.FieldConceptID, id,
					logger.FieldError, err)
				return nil
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	concepts := make([]*types.Concept, 0, len(results))
	for _, c := range results {
		if c != nil {
			concepts = append(concepts, c)
		}
	}
	return concepts, nil
}

// ListOwners returns every owner concept in storage order.
func (m *Manager) ListOwners(ctx context.Context) ([]*types.Concept, error) {
	known, err := m.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	all, err := m.ListAllConcepts(ctx)
	if err != nil {
		return nil, err
	}
	owners := []*types.Concept{}
	for _, c := range all {
		if known.IsOwner(c) {
			owners = append(owners, c)
		}
	}
	return owners, nil
}
