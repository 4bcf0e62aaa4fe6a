// Package remote implements a StorageProvider that forwards every call to the
// /items API of another node's HTTP service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// ItemRequest is the PUT /items/{id} body.
type ItemRequest struct {
	Data string `json:"data"`
}

// ItemResponse is the GET /items/{id} body.
type ItemResponse struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// HandleResponse is the PUT /items/{id} response.
type HandleResponse struct {
	Handle string `json:"handle"`
}

// ListResponse is the GET /items body.
type ListResponse struct {
	IDs []string `json:"ids"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Provider is the HTTP-backed StorageProvider.
type Provider struct {
	baseURL string
	client  *http.Client
	log     *zap.SugaredLogger
}

// New returns a provider for the service at baseURL.
func New(baseURL string, timeout time.Duration) (*Provider, error) {
	if baseURL == "" {
		return nil, types.ErrRemoteURLEmpty
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrapf(err, "parse remote url %q", baseURL)
	}
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     logger.ComponentLogger("storage.remote"),
	}, nil
}

func (p *Provider) itemURL(id string) string {
	return p.baseURL + "/items/" + url.PathEscape(id)
}

// do sends the request and decodes a 2xx JSON body into out when out is
// non-nil. 404 maps to ErrNotFound, other failures to ErrRemote.
func (p *Provider) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%s %s", method, target), types.ErrRemote)
	}
	defer resp.Body.Close()
	p.log.Debugw("Remote call",
		logger.FieldMethod, method,
		logger.FieldEndpoint, target,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusNotFound {
		return errors.Wrapf(types.ErrNotFound, "%s %s", method, target)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrapf(types.ErrRemote, "%s %s: %s", method, target, errorText(resp))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Mark(errors.Wrapf(err, "decode %s %s", method, target), types.ErrRemote)
	}
	return nil
}

// errorText extracts the server's error message, falling back to the status.
func errorText(resp *http.Response) string {
	var e ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&e); err == nil && e.Error != "" {
		return fmt.Sprintf("%d %s", resp.StatusCode, e.Error)
	}
	return resp.Status
}

// Store PUTs data under id and returns the server's handle.
func (p *Provider) Store(ctx context.Context, id, data string) (string, error) {
	if id == "" {
		return "", types.ErrInvalidID
	}
	var out HandleResponse
	if err := p.do(ctx, http.MethodPut, p.itemURL(id), ItemRequest{Data: data}, &out); err != nil {
		return "", err
	}
	return out.Handle, nil
}

// Retrieve GETs the data stored under id.
func (p *Provider) Retrieve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", types.ErrInvalidID
	}
	var out ItemResponse
	if err := p.do(ctx, http.MethodGet, p.itemURL(id), nil, &out); err != nil {
		return "", err
	}
	return out.Data, nil
}

// Update aliases Store.
func (p *Provider) Update(ctx context.Context, id, data string) error {
	_, err := p.Store(ctx, id, data)
	return err
}

// Delete removes id on the server.
func (p *Provider) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	return p.do(ctx, http.MethodDelete, p.itemURL(id), nil, nil)
}

// ListAll returns the server's ids.
func (p *Provider) ListAll(ctx context.Context) ([]string, error) {
	var out ListResponse
	if err := p.do(ctx, http.MethodGet, p.baseURL+"/items", nil, &out); err != nil {
		return nil, err
	}
	if out.IDs == nil {
		return []string{}, nil
	}
	return out.IDs, nil
}

// Close releases idle connections.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
