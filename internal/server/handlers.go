package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/metalake-labs/mdlh/internal/lineage"
	"github.com/metalake-labs/mdlh/internal/views"
	"github.com/metalake-labs/mdlh/pkg/meta"
)

const defaultPageSize = 100

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.CurrentSnapshot()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, lineage.ErrNoSnapshot)
		return
	}

	q := r.URL.Query()
	filter := meta.AssetFilter{
		TypeName:      q.Get("type"),
		ConnectorName: q.Get("connector"),
		Limit:         defaultPageSize,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("offset must be a non-negative integer"))
			return
		}
		filter.Offset = n
	}
	if v := q.Get("has_lineage"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, errors.New("has_lineage must be a boolean"))
			return
		}
		filter.HasLineage = &b
	}

	assets, err := s.store.ListAssets(snap.ID, filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if assets == nil {
		assets = []meta.Asset{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"snapshot_id": snap.ID,
		"assets":      assets,
	})
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.CurrentSnapshot()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, lineage.ErrNoSnapshot)
		return
	}

	guid := chi.URLParam(r, "guid")
	asset, err := s.store.GetAsset(snap.ID, guid)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if asset == nil {
		s.writeError(w, http.StatusNotFound, errors.New("asset not found: "+guid))
		return
	}
	s.writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	q := r.URL.Query()

	depth := s.maxDepth
	if v := q.Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("depth must be a positive integer"))
			return
		}
		if n < depth {
			depth = n
		}
	}

	var (
		hops []meta.LineageHop
		err  error
	)
	switch dir := q.Get("direction"); dir {
	case "":
		hops, err = s.lineage.Full(guid, depth)
	case string(meta.DirectionUpstream), string(meta.DirectionDownstream):
		hops, err = s.lineage.Lineage(guid, meta.Direction(dir), depth)
	default:
		s.writeError(w, http.StatusBadRequest,
			errors.New("direction must be upstream or downstream"))
		return
	}
	if err != nil {
		if errors.Is(err, lineage.ErrNoSnapshot) {
			s.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if hops == nil {
		hops = []meta.LineageHop{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"start_guid": guid,
		"max_depth":  depth,
		"hops":       hops,
	})
}

func (s *Server) handleListViews(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"views": views.Names()})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	result, err := s.views.Query(name)
	if err != nil {
		var unknownErr *views.UnknownViewError
		switch {
		case errors.As(err, &unknownErr):
			s.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, lineage.ErrNoSnapshot):
			s.writeError(w, http.StatusServiceUnavailable, err)
		default:
			s.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, _ *http.Request) {
	snapshots, err := s.store.ListSnapshots()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snapshots == nil {
		snapshots = []*meta.Snapshot{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"snapshots": snapshots})
}

func (s *Server) handleCurrentSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.store.CurrentSnapshot()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snap == nil {
		s.writeError(w, http.StatusNotFound, lineage.ErrNoSnapshot)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []*meta.RefreshRun{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, http.StatusNotImplemented,
			errors.New("refresh is not configured on this server"))
		return
	}

	snap, err := s.runner.Run(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, snap)
}
