// Package comm answers concept queries between owners.
//
// OwnerCommunication resolves queries against the local concept store on
// behalf of a requesting owner. Protocol sends a query to another owner's
// node over HTTP.
package comm

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// UpgradeThreshold is the alignment factor below which a response carries
// an upgraded description.
const UpgradeThreshold = 0.8

// ConceptQuery asks about one concept. ID may be empty when only the name is
// known.
type ConceptQuery struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ConceptResponse is the answer to a ConceptQuery.
type ConceptResponse struct {
	ID                 string  `json:"id" yaml:"id"`
	Name               string  `json:"name" yaml:"name"`
	Description        string  `json:"description" yaml:"description"`
	AlignmentFactor    float64 `json:"alignmentFactor" yaml:"alignmentFactor"`
	IsGuess            bool    `json:"isGuess" yaml:"isGuess"`
	UpgradeDescription string  `json:"upgradeDescription,omitempty" yaml:"upgradeDescription,omitempty"`
}

// ConceptSource is the part of concept.Manager that query resolution reads.
type ConceptSource interface {
	GetConcept(ctx context.Context, id string) (*types.Concept, error)
	IsOwner(ctx context.Context, c *types.Concept) (bool, error)
	FindConceptByName(ctx context.Context, name string) (*types.Concept, error)
}

// OwnerCommunication resolves queries from the point of view of ownerID.
type OwnerCommunication struct {
	concepts ConceptSource
	ownerID  string
	log      *zap.SugaredLogger
}

// NewOwnerCommunication returns a resolver acting for ownerID.
func NewOwnerCommunication(concepts ConceptSource, ownerID string) *OwnerCommunication {
	return &OwnerCommunication{
		concepts: concepts,
		ownerID:  ownerID,
		log:      logger.ComponentLogger("comm.owner").With(logger.FieldOwnerID, ownerID),
	}
}

// OwnerID returns the owner this resolver acts for.
func (oc *OwnerCommunication) OwnerID() string {
	return oc.ownerID
}

// QueryConceptsFromOtherOwner resolves every query concurrently and returns
// the responses in input order. Unknown concepts produce a guess; any other
// failure fails the whole batch.
func (oc *OwnerCommunication) QueryConceptsFromOtherOwner(ctx context.Context, queries []ConceptQuery) ([]ConceptResponse, error) {
	responses := make([]ConceptResponse, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			resp, err := oc.processQuery(gctx, q)
			if err != nil {
				return errors.Wrapf(err, "query %q", q.Name)
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

// AnswerByName resolves a query that names a concept without its id.
func (oc *OwnerCommunication) AnswerByName(ctx context.Context, name string) (ConceptResponse, error) {
	q := ConceptQuery{Name: name}
	c, err := oc.concepts.FindConceptByName(ctx, name)
	if err != nil {
		return ConceptResponse{}, err
	}
	if c != nil {
		q.ID = c.ID
	}
	return oc.processQuery(ctx, q)
}

func (oc *OwnerCommunication) processQuery(ctx context.Context, q ConceptQuery) (ConceptResponse, error) {
	var c *types.Concept
	if q.ID != "" {
		var err error
		c, err = oc.concepts.GetConcept(ctx, q.ID)
		if err != nil {
			return ConceptResponse{}, err
		}
	}

	isGuess := false
	factor := 0.0
	if c == nil {
		c = guessConcept(q)
		isGuess = true
		oc.log.Debugw("Guessed unknown concept", logger.FieldConceptID, q.ID, logger.FieldName, q.Name)
	} else {
		var err error
		factor, err = oc.CalculateAlignmentFactor(ctx, c)
		if err != nil {
			return ConceptResponse{}, err
		}
	}

	resp := ConceptResponse{
		ID:              c.ID,
		Name:            c.Name,
		Description:     c.Description,
		AlignmentFactor: factor,
		IsGuess:         isGuess,
	}
	if factor < UpgradeThreshold {
		resp.UpgradeDescription = upgradedDescription(c)
	}
	return resp, nil
}

// guessConcept builds the placeholder returned for an unknown concept. It
// keeps the queried id so the caller can correlate the answer.
func guessConcept(q ConceptQuery) *types.Concept {
	description := "Generated description for " + q.Name
	if q.ID == "" {
		return types.NewConcept(q.Name, description, types.DefaultTypeID)
	}
	return types.NewConceptWithID(q.ID, q.Name, description, types.DefaultTypeID)
}

func upgradedDescription(c *types.Concept) string {
	return "Upgraded description for " + c.Name + ": " + c.Description
}

// CalculateAlignmentFactor returns how strongly c is aligned with the
// requesting owner. An edge from c to the owner wins; otherwise the owner's
// own edge to c is used; otherwise 0.
func (oc *OwnerCommunication) CalculateAlignmentFactor(ctx context.Context, c *types.Concept) (float64, error) {
	for _, edge := range c.AlignedConcepts {
		if edge.ConceptID != oc.ownerID {
			continue
		}
		target, err := oc.concepts.GetConcept(ctx, edge.ConceptID)
		if err != nil {
			return 0, err
		}
		if target == nil {
			continue
		}
		isOwner, err := oc.concepts.IsOwner(ctx, target)
		if err != nil {
			return 0, err
		}
		if isOwner {
			return edge.Factor, nil
		}
	}

	owner, err := oc.concepts.GetConcept(ctx, oc.ownerID)
	if err != nil {
		return 0, err
	}
	if owner == nil {
		return 0, nil
	}
	if edge, ok := owner.AlignmentTo(c.ID); ok {
		return edge.Factor, nil
	}
	return 0, nil
}
