package comm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/internal/registry"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// QueryRequest is the POST /query body.
type QueryRequest struct {
	ConceptName string `json:"conceptName" validate:"required"`
}

// Protocol queries other owners' nodes. Calls are not retried.
type Protocol struct {
	registry registry.Registry
	client   *http.Client
	log      *zap.SugaredLogger
}

// NewProtocol returns a protocol that resolves endpoints through reg.
func NewProtocol(reg registry.Registry, timeout time.Duration) *Protocol {
	return &Protocol{
		registry: reg,
		client:   &http.Client{Timeout: timeout},
		log:      logger.ComponentLogger("comm.protocol"),
	}
}

// QueryConcept asks ownerID's node about conceptName. Registry, transport
// and non-2xx failures are returned; the last two are marked ErrRemote.
func (p *Protocol) QueryConcept(ctx context.Context, ownerID, conceptName string) (*ConceptResponse, error) {
	endpoint, err := p.registry.GetOwnerEndpoint(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve endpoint for owner %s", ownerID)
	}

	body, err := json.Marshal(QueryRequest{ConceptName: conceptName})
	if err != nil {
		return nil, errors.Wrap(err, "encode query")
	}
	target := strings.TrimRight(endpoint, "/") + "/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "build query for %s", target)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "query %s", target), types.ErrRemote)
	}
	defer resp.Body.Close()

	p.log.Debugw("Queried owner",
		logger.FieldOwnerID, ownerID,
		logger.FieldEndpoint, target,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Wrapf(types.ErrRemote, "query %s: %s: %s",
			target, resp.Status, strings.TrimSpace(string(msg)))
	}

	var out ConceptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decode response from %s", target), types.ErrRemote)
	}
	return &out, nil
}
