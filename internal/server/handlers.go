package server

import (
	"net/http"

	"github.com/mesh-intelligence/concepts/internal/comm"
	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/registry"
	"github.com/mesh-intelligence/concepts/internal/storage/remote"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req comm.QueryRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.opts.Comm.AnswerByName(r.Context(), req.ConceptName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var info types.OwnerInfo
	if err := decode(w, r, &info); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.opts.Registry.RegisterOwner(r.Context(), info.ID, info.Name, info.Endpoint); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetOwner(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	endpoint, err := s.opts.Registry.GetOwnerEndpoint(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registry.EndpointResponse{Endpoint: endpoint})
}

func (s *Server) handleListOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := s.opts.Registry.ListAllOwners(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, owners)
}

func (s *Server) handleFindOwner(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.writeError(w, r, errors.Wrap(types.ErrInvalidArgument, "name query parameter is required"))
		return
	}
	info, err := s.opts.Registry.FindOwnerByName(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if info == nil {
		s.writeError(w, r, errors.Wrapf(types.ErrNotFound, "owner named %q", name))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	ids, err := s.opts.Items.ListAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, remote.ListResponse{IDs: ids})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.opts.Items.Retrieve(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.ItemResponse{ID: id, Data: data})
}

func (s *Server) handlePutItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req remote.ItemRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	handle, err := s.opts.Items.Store(r.Context(), id, req.Data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.HandleResponse{Handle: handle})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.opts.Items.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
