package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/recordkeeper/internal/apperror"
	"github.com/sakif/recordkeeper/internal/jsonbody"
	"github.com/sakif/recordkeeper/internal/service"
)

// ClassificationObserver counts body classifier outcomes.
type ClassificationObserver interface {
	ObserveClassification(outcome, reason string)
}

// RecordHandler serves the create, read, update, and delete endpoints of all
// three entity kinds. Every endpoint takes its operands from a JSON body,
// including GET and DELETE.
//
// REQUEST FLOW:
//  1. classify reads the body into one of Absent, Valid or Invalid.
//  2. some (mutations) or allOrSome (reads) turns that result into a service
//     call or an error. Mutations refuse an absent body; reads treat it as
//     "everything".
//  3. respond writes the result as JSON with 200, or the error as
//     {"error": "<Category>: <detail>"} with the category's status code.
type RecordHandler struct {
	svc     *service.RecordService
	body    jsonbody.Config
	metrics ClassificationObserver
	logger  *slog.Logger
}

// NewRecordHandler creates a RecordHandler. metrics may be nil.
func NewRecordHandler(svc *service.RecordService, body jsonbody.Config, metrics ClassificationObserver, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{
		svc:     svc,
		body:    body,
		metrics: metrics,
		logger:  logger,
	}
}

// classify runs the body classifier for payload type T and counts the outcome.
func classify[T any](h *RecordHandler, r *http.Request) jsonbody.Result[T] {
	res := jsonbody.Classify[T](r, h.body)

	if h.metrics != nil {
		reason := ""
		if res.Err != nil {
			reason = res.Err.Reason.String()
		}
		h.metrics.ObserveClassification(res.Kind.String(), reason)
	}
	if res.Kind == jsonbody.Invalid && res.Err != nil {
		h.logger.Debug("request body rejected",
			slog.String("path", r.URL.Path),
			slog.String("reason", res.Err.Reason.String()),
			slog.String("error", res.Err.Error()),
		)
	}
	return res
}

// some classifies the body and dispatches a mutating operation.
func some[S ~[]E, E any, Out any](h *RecordHandler, w http.ResponseWriter, r *http.Request, run func(context.Context, S) (Out, error)) {
	res := classify[S](h, r)
	out, err := service.QuerySome(r.Context(), res, run)
	h.respond(w, r, out, err)
}

// allOrSome classifies the body and dispatches a read.
func allOrSome[S ~[]E, E any, Out any](h *RecordHandler, w http.ResponseWriter, r *http.Request, all func(context.Context) (Out, error), filtered func(context.Context, S) (Out, error)) {
	res := classify[S](h, r)
	out, err := service.QueryAllOrSome(r.Context(), res, all, filtered)
	h.respond(w, r, out, err)
}

func (h *RecordHandler) respond(w http.ResponseWriter, r *http.Request, out any, err error) {
	if err != nil {
		if status, _ := category(err); status >= http.StatusInternalServerError {
			h.logger.Error("request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// =========================================================================
// CONTAINERS
// =========================================================================

// CreateContainers inserts a batch of containers and returns them with their
// assigned ids.
//
// HTTP: POST /api/containers
// BODY: [{"title": "groceries"}, ...]
//
// RESPONSE FORMAT:
//
//	[{"id": 1, "title": "groceries"}, ...]
func (h *RecordHandler) CreateContainers(w http.ResponseWriter, r *http.Request) {
	some(h, w, r, h.svc.CreateContainers)
}

// ReadContainers returns containers ordered by id.
//
// HTTP: GET /api/containers
// BODY: optional [1, 2, ...]; absent or [] reads everything.
func (h *RecordHandler) ReadContainers(w http.ResponseWriter, r *http.Request) {
	allOrSome(h, w, r, h.svc.AllContainers, h.svc.QueryContainers)
}

// UpdateContainers renames containers. A record without a title returns the
// container unchanged.
//
// HTTP: PUT /api/containers
// BODY: [{"id": 1, "title": "renamed"}, ...]
func (h *RecordHandler) UpdateContainers(w http.ResponseWriter, r *http.Request) {
	some(h, w, r, h.svc.UpdateContainers)
}

// DeleteContainers removes containers along with everything they own.
//
// HTTP: DELETE /api/containers
// BODY: [1, 2, ...]
//
// RESPONSE FORMAT: the sorted ids that were actually deleted, e.g. [1, 2].
// Ids that no longer exist are skipped, so repeating a delete returns [].
func (h *RecordHandler) DeleteContainers(w http.ResponseWriter, r *http.Request) {
	some(h, w, r, h.svc.DeleteContainers)
}

// =========================================================================
// SUB-CONTAINERS
// =========================================================================
//
// TARGETS:
// Reads, updates and deletes address sub-containers through a tagged target
// instead of a bare id:
//
//	{"target": "list", "id": 3}   every sub-container of container 3
//	{"target": "set",  "id": 7}   sub-container 7 itself
//
// A body may mix both kinds. A sub-container matched more than once appears
// once in the response.

// CreateSubContainers inserts sub-containers under existing containers.
//
// HTTP: POST /api/subcontainers
// BODY: [{"container_id": 1, "title": "kitchen"}, ...]
func (h *RecordHandler) CreateSubContainers(w http.ResponseWriter, r *http.Request) {
	some(h, w, r, h.svc.CreateSubContainers)
}

// ReadSubContainers returns the sub-containers the targets select.
//
// HTTP: GET /api/subcontainers
// BODY: optional [{"target": "list", "id": 1}, {"target": "set", "id": 7}];
// absent or [] reads everything.
func (h *RecordHandler) ReadSubContainers(w http.ResponseWriter, r *http.Request) {
	allOrSome(h, w, r, h.svc.AllSubContainers, h.svc.QuerySubContainers)
}

// UpdateSubContainers renames or moves sub-containers. Moving one to another
// container moves its leaves with it.
//
// HTTP: PUT /api/subcontainers
// BODY: [{"target": {"target": "set", "id": 7}, "container_id": 2, "title": "pantry"}, ...]
//
// Fields left out of a record are not touched.
func (h *RecordHandler) UpdateSubContainers(w http.ResponseWriter, r *http.Request) {
	some(h, w, r, h.svc.UpdateSubContainers)
}

// DeleteSubContainers removes the selected sub-containers and their leaves.
//
// HTTP: DELETE /api/subcontainers
// BODY: [{"target": "set", "id": 7}, ...]
func (h *RecordHandler) DeleteSubContainers(w http.ResponseWriter, r *http.Request) {
	some(h, w, r, h.svc.DeleteSubContainers)
}

// =========================================================================
// LEAVES
// =========================================================================
//
// TARGETS:
// Leaves accept all three target kinds: "list" (by container), "set" (by
// sub-container) and "todo" (by the leaf's own id).
//
// NULL VS MISSING:
// In an update record, a missing field is left alone, while null clears it.
// Only sub_container_id and due can be cleared; null for any other field is a
// 400.

// CreateLeaves inserts leaves. complete defaults to false; sub_container_id
// and due are optional.
//
// HTTP: POST /api/leaves
// BODY: [{"container_id": 1, "sub_container_id": 7, "title": "dishes", "due": "2025-05-01T18:00:00Z"}, ...]
func (h *RecordHandler) CreateLeaves(w http.ResponseWriter, r *http.Request) {
	some(h, w, r, h.svc.CreateLeaves)
}

// ReadLeaves returns the leaves the targets select.
//
// HTTP: GET /api/leaves
// BODY: optional [{"target": "todo", "id": 12}, ...]; absent or [] reads everything.
func (h *RecordHandler) ReadLeaves(w http.ResponseWriter, r *http.Request) {
	allOrSome(h, w, r, h.svc.AllLeaves, h.svc.QueryLeaves)
}

// UpdateLeaves applies partial updates to the leaves each target selects.
//
// HTTP: PUT /api/leaves
// BODY: [{"target": {"target": "list", "id": 1}, "complete": true, "due": null}, ...]
func (h *RecordHandler) UpdateLeaves(w http.ResponseWriter, r *http.Request) {
	some(h, w, r, h.svc.UpdateLeaves)
}

// DeleteLeaves removes the selected leaves and returns their ids.
//
// HTTP: DELETE /api/leaves
// BODY: [{"target": "todo", "id": 12}, {"target": "set", "id": 7}, ...]
func (h *RecordHandler) DeleteLeaves(w http.ResponseWriter, r *http.Request) {
	some(h, w, r, h.svc.DeleteLeaves)
}

// =========================================================================
// HEALTH
// =========================================================================

// Health pings the store.
//
// HTTP: GET /healthz
// RESPONSE: 200 {"status": "ok"}, or 500 when the store does not answer.
func (h *RecordHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeError(w, apperror.Server("store unreachable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

