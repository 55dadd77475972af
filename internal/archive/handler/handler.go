// Package handler exposes the archival and retention endpoints. It is a thin
// transport layer: parsing, response envelopes, and logging only; all
// behavior lives in the archive service and the sweeper.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"civicdesk/internal/archive/models"
	"civicdesk/internal/retention"
	dErrors "civicdesk/pkg/domain-errors"
	"civicdesk/pkg/platform/httputil"
	"civicdesk/pkg/requestcontext"
)

// ArchiveService is the interface the handler needs from the archive service.
type ArchiveService interface {
	Archive(ctx context.Context, kind models.EntityKind, entityID uuid.UUID, reason string, actorID *uuid.UUID) (*models.ArchiveRecord, error)
	Restore(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) error
	Status(ctx context.Context, kind models.EntityKind, entityID uuid.UUID) models.Status
	List(ctx context.Context, kind models.EntityKind, filters models.ListFilters, page models.Page) (*models.ListResult, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Sweeps is the interface the handler needs from the retention side.
type Sweeps interface {
	RunNow(ctx context.Context) (retention.Result, error)
}

// ForceArchiver runs the remediation path that bypasses policy checks.
type ForceArchiver interface {
	ForceArchive(ctx context.Context, requestID uuid.UUID, actorID *uuid.UUID) (*models.ArchiveRecord, error)
}

// Handler handles archival and retention endpoints.
type Handler struct {
	logger   *slog.Logger
	archives ArchiveService
	sweeps   Sweeps
	force    ForceArchiver
	policies *retention.Engine
}

func New(archives ArchiveService, sweeps Sweeps, force ForceArchiver, policies *retention.Engine, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		archives: archives,
		sweeps:   sweeps,
		force:    force,
		policies: policies,
	}
}

// Register registers the archival routes. The caller mounts this under the
// middleware chain that enforces authentication and the elevated role.
func (h *Handler) Register(r chi.Router) {
	r.Get("/archives", h.handleList)
	r.Get("/archives/stats", h.handleStats)
	r.Get("/archives/{kind}", h.handleList)
	r.Get("/archives/{kind}/{id}", h.handleStatus)
	r.Post("/archives/{kind}/{id}", h.handleCreate)
	r.Delete("/archives/{kind}/{id}", h.handleRestore)

	r.Get("/retention/policies", h.handleListPolicies)
	r.Post("/retention/sweep", h.handleSweep)
	r.Post("/retention/requests/{id}/archive", h.handleForceArchive)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var kind models.EntityKind
	if raw := chi.URLParam(r, "kind"); raw != "" {
		parsed, err := models.ParseEntityKind(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		kind = parsed
	}

	filters, page, err := parseListQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.archives.List(ctx, kind, filters, page)
	if err != nil {
		h.logError(ctx, "failed to list archives", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, entityID, err := parseTarget(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status := h.archives.Status(ctx, kind, entityID)
	httputil.WriteJSON(w, http.StatusOK, status)
}

type createArchiveRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, entityID, err := parseTarget(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var body createArchiveRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	actorID := requestcontext.UserID(ctx)
	record, err := h.archives.Archive(ctx, kind, entityID, body.Reason, &actorID)
	if err != nil {
		h.logError(ctx, "failed to archive entity", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, entityID, err := parseTarget(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.archives.Restore(ctx, kind, entityID); err != nil {
		h.logError(ctx, "failed to restore entity", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.archives.Stats(ctx)
	if err != nil {
		h.logError(ctx, "failed to compute archive stats", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"policies": h.policies.List(),
	})
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.sweeps.RunNow(ctx)
	if err != nil {
		h.logError(ctx, "manual sweep failed", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "sweep failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleForceArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request id"))
		return
	}

	actorID := requestcontext.UserID(ctx)
	record, err := h.force.ForceArchive(ctx, requestID, &actorID)
	if err != nil {
		h.logError(ctx, "forced archival failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func parseTarget(r *http.Request) (models.EntityKind, uuid.UUID, error) {
	kind, err := models.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", uuid.Nil, err
	}
	entityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return "", uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid entity id")
	}
	return kind, entityID, nil
}

func parseListQuery(r *http.Request) (models.ListFilters, models.Page, error) {
	q := r.URL.Query()
	filters := models.ListFilters{
		Search: q.Get("search"),
		Role:   q.Get("role"),
	}

	var err error
	if filters.PopulationMin, err = parseInt64(q.Get("populationMin")); err != nil {
		return filters, models.Page{}, dErrors.New(dErrors.CodeBadRequest, "invalid populationMin")
	}
	if filters.PopulationMax, err = parseInt64(q.Get("populationMax")); err != nil {
		return filters, models.Page{}, dErrors.New(dErrors.CodeBadRequest, "invalid populationMax")
	}
	if filters.ArchivedFrom, err = parseTime(q.Get("archivedFrom")); err != nil {
		return filters, models.Page{}, dErrors.New(dErrors.CodeBadRequest, "invalid archivedFrom")
	}
	if filters.ArchivedTo, err = parseTime(q.Get("archivedTo")); err != nil {
		return filters, models.Page{}, dErrors.New(dErrors.CodeBadRequest, "invalid archivedTo")
	}

	page := models.Page{}
	if raw := q.Get("page"); raw != "" {
		if page.Page, err = strconv.Atoi(raw); err != nil {
			return filters, page, dErrors.New(dErrors.CodeBadRequest, "invalid page")
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if page.Limit, err = strconv.Atoi(raw); err != nil {
			return filters, page, dErrors.New(dErrors.CodeBadRequest, "invalid limit")
		}
	}
	return filters, page, nil
}

func parseInt64(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Accept bare dates as well.
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
