package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// EndpointResponse is the GET /owner/{id} body.
type EndpointResponse struct {
	Endpoint string `json:"endpoint"`
}

// HTTPClient talks to a registry served by a node's HTTP service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ Registry = (*HTTPClient)(nil)

// NewHTTPClient returns a client for the registry at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(b)
	}
	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%s %s", method, target), types.ErrRemote)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(types.ErrNotFound, "%s %s", method, target)
	case resp.StatusCode == http.StatusBadRequest:
		return errors.Mark(errors.Wrapf(types.ErrInvalidArgument, "%s %s: %s", method, target, readError(resp)), types.ErrRemote)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errors.Wrapf(types.ErrRemote, "%s %s: %s", method, target, readError(resp))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Mark(errors.Wrapf(err, "decode %s %s", method, target), types.ErrRemote)
	}
	return nil
}

func readError(resp *http.Response) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&e); err == nil && e.Error != "" {
		return e.Error
	}
	return resp.Status
}

// RegisterOwner validates the record locally, then POSTs it to /register.
func (c *HTTPClient) RegisterOwner(ctx context.Context, id, name, endpoint string) error {
	info := types.OwnerInfo{ID: id, Name: name, Endpoint: endpoint}
	if err := info.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/register", info, nil)
}

// GetOwnerEndpoint fails with ErrNotFound when the service answers 404.
func (c *HTTPClient) GetOwnerEndpoint(ctx context.Context, id string) (string, error) {
	var out EndpointResponse
	if err := c.do(ctx, http.MethodGet, "/owner/"+url.PathEscape(id), nil, &out); err != nil {
		return "", err
	}
	return out.Endpoint, nil
}

// ListAllOwners returns the records in the order the service sends them.
func (c *HTTPClient) ListAllOwners(ctx context.Context) ([]types.OwnerInfo, error) {
	owners := []types.OwnerInfo{}
	if err := c.do(ctx, http.MethodGet, "/owners", nil, &owners); err != nil {
		return nil, err
	}
	return owners, nil
}

// FindOwnerByName returns nil when the service answers 404.
func (c *HTTPClient) FindOwnerByName(ctx context.Context, name string) (*types.OwnerInfo, error) {
	var info types.OwnerInfo
	err := c.do(ctx, http.MethodGet, "/owners/find?name="+url.QueryEscape(name), nil, &info)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}
