package hubspottest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

const defaultListLimit = 10

func (s *Server) routes() {
	s.mux.HandleFunc("GET /crm/v3/objects/{objectType}", s.listObjects)
	s.mux.HandleFunc("POST /crm/v3/objects/{objectType}", s.createObject)
	s.mux.HandleFunc("GET /crm/v3/objects/{objectType}/{objectId}", s.getObject)
	s.mux.HandleFunc("PATCH /crm/v3/objects/{objectType}/{objectId}", s.updateObject)
	s.mux.HandleFunc("DELETE /crm/v3/objects/{objectType}/{objectId}", s.archiveObject)
	s.mux.HandleFunc("POST /crm/v3/objects/{objectType}/search", s.searchObjects)
	s.mux.HandleFunc("POST /crm/v3/objects/{objectType}/batch/create", s.batchCreate)
	s.mux.HandleFunc("POST /crm/v3/objects/{objectType}/batch/read", s.batchRead)
	s.mux.HandleFunc("POST /crm/v3/objects/{objectType}/batch/update", s.batchUpdate)
	s.mux.HandleFunc("POST /crm/v3/objects/{objectType}/batch/upsert", s.batchUpsert)
	s.mux.HandleFunc("POST /crm/v3/objects/{objectType}/batch/archive", s.batchArchive)

	s.associationRoutes()
}

// wireRecord is the response shape of one record.
type wireRecord struct {
	ID                    string                               `json:"id"`
	Properties            map[string]*string                   `json:"properties"`
	PropertiesWithHistory map[string][]hubspot.PropertyVersion `json:"propertiesWithHistory,omitempty"`
	CreatedAt             string                               `json:"createdAt"`
	UpdatedAt             string                               `json:"updatedAt"`
	Archived              bool                                 `json:"archived"`
	ArchivedAt            string                               `json:"archivedAt,omitempty"`
}

// view selects what a response shows of a record. With no properties named
// every stored property is returned; otherwise the named ones and the system ones.
type view struct {
	properties []string
	history    []string
}

func (v view) render(ctx context.Context, store *Store, record *Record) (wireRecord, error) {
	wire := wireRecord{
		ID:         strconv.FormatInt(record.ID, 10),
		Properties: map[string]*string{},
		CreatedAt:  formatTime(record.CreatedAt),
		UpdatedAt:  formatTime(record.UpdatedAt),
		Archived:   record.Archived,
	}

	if record.Archived {
		wire.ArchivedAt = formatTime(record.ArchivedAt)
	}

	if len(v.properties) == 0 {
		for name, value := range record.Properties {
			wire.Properties[name] = &value
		}
	} else {
		for _, name := range append([]string{propertyObjectID, propertyCreateDate, propertyLastModified}, v.properties...) {
			if value, ok := record.Properties[name]; ok {
				wire.Properties[name] = &value
			} else {
				wire.Properties[name] = nil
			}
		}
	}

	if len(v.history) > 0 {
		history, err := store.History(ctx, record.ID, v.history)
		if err != nil {
			return wireRecord{}, err
		}

		wire.PropertiesWithHistory = history
	}

	return wire, nil
}

func (v view) renderAll(ctx context.Context, store *Store, records []*Record) ([]wireRecord, error) {
	out := make([]wireRecord, 0, len(records))

	for _, record := range records {
		wire, err := v.render(ctx, store, record)
		if err != nil {
			return nil, err
		}

		out = append(out, wire)
	}

	return out, nil
}

func splitList(values []string) []string {
	var out []string

	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}

	return out
}

func viewFromQuery(r *http.Request) view {
	query := r.URL.Query()

	return view{
		properties: splitList(query["properties"]),
		history:    splitList(query["propertiesWithHistory"]),
	}
}

func archivedFlag(r *http.Request) bool {
	archived, _ := strconv.ParseBool(r.URL.Query().Get("archived"))

	return archived
}

type collectionResponse struct {
	Total   *int            `json:"total,omitempty"`
	Results []wireRecord    `json:"results"`
	Paging  *hubspot.Paging `json:"paging,omitempty"`
}

func nextPage(after string) *hubspot.Paging {
	if after == "" {
		return nil
	}

	return &hubspot.Paging{Next: &hubspot.PagingCursor{After: after}}
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	objectType := r.PathValue("objectType")
	query := r.URL.Query()

	limit := defaultListLimit

	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > constants.MaxSearchLimit {
			writeError(w, r, invalid("limit must be between 1 and %d, got %q", constants.MaxSearchLimit, raw))

			return
		}

		limit = n
	}

	var after int64

	if raw := query.Get("after"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, invalid("after must be a record id, got %q", raw))

			return
		}

		after = n
	}

	records, next, err := s.store.List(r.Context(), objectType, after, limit, archivedFlag(r))
	if err != nil {
		writeError(w, r, err)

		return
	}

	results, err := viewFromQuery(r).renderAll(r.Context(), s.store, records)
	if err != nil {
		writeError(w, r, err)

		return
	}

	response := collectionResponse{Results: results}
	if next > 0 {
		response.Paging = nextPage(strconv.FormatInt(next, 10))
	}

	writeJSON(w, http.StatusOK, response)
}

type associationRequest struct {
	To    hubspot.RecordRef           `json:"to"`
	Types []hubspot.AssociationTypeID `json:"types"`
}

type objectInput struct {
	ID           hubspot.Identifier   `json:"id"`
	IDProperty   string               `json:"idProperty"`
	Properties   hubspot.Properties   `json:"properties"`
	Associations []associationRequest `json:"associations"`
}

func (s *Server) create(ctx context.Context, objectType string, input objectInput) (*Record, error) {
	record, err := s.store.Create(ctx, objectType, input.Properties)
	if err != nil {
		return nil, err
	}

	for _, association := range input.Associations {
		err = s.associateOnCreate(ctx, objectType, record.ID, association)
		if err != nil {
			_ = s.store.Archive(ctx, objectType, record.ID)

			return nil, err
		}
	}

	return record, nil
}

func (s *Server) associateOnCreate(ctx context.Context, objectType string, id int64, association associationRequest) error {
	if len(association.Types) == 0 {
		return invalid("association to %s has no types", association.To.ID)
	}

	typeIDs := make([]int64, 0, len(association.Types))
	for _, t := range association.Types {
		typeIDs = append(typeIDs, t.ID())
	}

	t, err := s.store.associationType(ctx, typeIDs[0])
	if err != nil {
		return invalid("association type %d is not valid", typeIDs[0])
	}

	_, err = s.store.Associate(ctx, objectType, id, t.ToType, association.To.ID.Int64(), typeIDs...)

	return err
}

func (s *Server) createObject(w http.ResponseWriter, r *http.Request) {
	var input objectInput

	err := decodeBody(r, &input)
	if err != nil {
		writeError(w, r, err)

		return
	}

	record, err := s.create(r.Context(), r.PathValue("objectType"), input)
	if err != nil {
		writeError(w, r, err)

		return
	}

	s.respond(w, r, http.StatusCreated, view{}, record)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v view, record *Record) {
	wire, err := v.render(r.Context(), s.store, record)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, status, wire)
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.Lookup(r.Context(), r.PathValue("objectType"), r.PathValue("objectId"),
		r.URL.Query().Get("idProperty"), archivedFlag(r))
	if err != nil {
		writeError(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, viewFromQuery(r), record)
}

func (s *Server) updateObject(w http.ResponseWriter, r *http.Request) {
	objectType := r.PathValue("objectType")

	var input objectInput

	err := decodeBody(r, &input)
	if err != nil {
		writeError(w, r, err)

		return
	}

	record, err := s.store.Lookup(r.Context(), objectType, r.PathValue("objectId"), r.URL.Query().Get("idProperty"), false)
	if err != nil {
		writeError(w, r, err)

		return
	}

	record, err = s.store.Update(r.Context(), objectType, record.ID, input.Properties)
	if err != nil {
		writeError(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, view{}, record)
}

func (s *Server) archiveObject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("objectId"), 10, 64)
	if err != nil {
		writeError(w, r, invalid("objectId must be numeric, got %q", r.PathValue("objectId")))

		return
	}

	err = s.store.Archive(r.Context(), r.PathValue("objectType"), id)
	if err != nil {
		writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) searchObjects(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest

	err := decodeBody(r, &req)
	if err != nil {
		writeError(w, r, err)

		return
	}

	records, total, next, err := s.store.Search(r.Context(), r.PathValue("objectType"), &req)
	if err != nil {
		writeError(w, r, err)

		return
	}

	results, err := view{properties: req.Properties}.renderAll(r.Context(), s.store, records)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, collectionResponse{Total: &total, Results: results, Paging: nextPage(next)})
}

type batchRequest struct {
	Inputs                []objectInput `json:"inputs"`
	Properties            []string      `json:"properties"`
	PropertiesWithHistory []string      `json:"propertiesWithHistory"`
	IDProperty            string        `json:"idProperty"`
}

type batchResponse struct {
	Status      hubspot.BatchStatus  `json:"status"`
	Results     []wireRecord         `json:"results"`
	NumErrors   int                  `json:"numErrors,omitempty"`
	Errors      []hubspot.BatchError `json:"errors,omitempty"`
	StartedAt   string               `json:"startedAt"`
	CompletedAt string               `json:"completedAt"`
}

// batchRun collects the outcome of one batch call.
type batchRun struct {
	started  time.Time
	records  []*Record
	errors   []hubspot.BatchError
	notFound []string
}

func newBatchRun() *batchRun {
	return &batchRun{started: time.Now().UTC()}
}

func (b *batchRun) fail(err error, ids ...string) {
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound && len(ids) > 0 {
		b.notFound = append(b.notFound, ids...)

		return
	}

	b.errors = append(b.errors, batchError(err, ids...))
}

func (s *Server) finishBatch(w http.ResponseWriter, r *http.Request, objectType string, run *batchRun, v view, status int) {
	if len(run.notFound) > 0 {
		run.errors = append(run.errors, batchError(
			notFound("Could not get some %s objects, they may be deleted or not exist. Check that ids are valid.", objectType),
			run.notFound...))
	}

	results, err := v.renderAll(r.Context(), s.store, run.records)
	if err != nil {
		writeError(w, r, err)

		return
	}

	if len(run.errors) > 0 {
		status = http.StatusMultiStatus
	}

	writeJSON(w, status, batchResponse{
		Status:      hubspot.BatchStatusComplete,
		Results:     results,
		NumErrors:   len(run.errors),
		Errors:      run.errors,
		StartedAt:   formatTime(run.started),
		CompletedAt: formatTime(time.Now()),
	})
}

func (s *Server) decodeBatch(w http.ResponseWriter, r *http.Request) (*batchRequest, bool) {
	var req batchRequest

	err := decodeBody(r, &req)
	if err == nil && len(req.Inputs) > constants.MaxBatchSize {
		err = invalid("Too many inputs: %d. The limit is %d.", len(req.Inputs), constants.MaxBatchSize)
	}

	if err == nil {
		err = checkObjectType(r.PathValue("objectType"))
	}

	if err != nil {
		writeError(w, r, err)

		return nil, false
	}

	return &req, true
}

func (s *Server) batchCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBatch(w, r)
	if !ok {
		return
	}

	objectType := r.PathValue("objectType")
	run := newBatchRun()

	for _, input := range req.Inputs {
		record, err := s.create(r.Context(), objectType, input)
		if err != nil {
			run.fail(err)

			continue
		}

		run.records = append(run.records, record)
	}

	s.finishBatch(w, r, objectType, run, view{}, http.StatusCreated)
}

func (s *Server) batchRead(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBatch(w, r)
	if !ok {
		return
	}

	objectType := r.PathValue("objectType")
	run := newBatchRun()

	for _, input := range req.Inputs {
		record, err := s.store.Lookup(r.Context(), objectType, input.ID.String(), req.IDProperty, archivedFlag(r))
		if err != nil {
			run.fail(err, input.ID.String())

			continue
		}

		run.records = append(run.records, record)
	}

	s.finishBatch(w, r, objectType, run, view{properties: req.Properties, history: req.PropertiesWithHistory}, http.StatusOK)
}

func (s *Server) batchUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBatch(w, r)
	if !ok {
		return
	}

	objectType := r.PathValue("objectType")
	run := newBatchRun()

	for _, input := range req.Inputs {
		record, err := s.store.Lookup(r.Context(), objectType, input.ID.String(), input.IDProperty, false)
		if err == nil {
			record, err = s.store.Update(r.Context(), objectType, record.ID, input.Properties)
		}

		if err != nil {
			run.fail(err, input.ID.String())

			continue
		}

		run.records = append(run.records, record)
	}

	s.finishBatch(w, r, objectType, run, view{}, http.StatusOK)
}

func (s *Server) batchUpsert(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBatch(w, r)
	if !ok {
		return
	}

	objectType := r.PathValue("objectType")
	run := newBatchRun()

	for _, input := range req.Inputs {
		record, err := s.upsert(r.Context(), objectType, input)
		if err != nil {
			run.fail(err, input.ID.String())

			continue
		}

		run.records = append(run.records, record)
	}

	s.finishBatch(w, r, objectType, run, view{}, http.StatusOK)
}

func (s *Server) upsert(ctx context.Context, objectType string, input objectInput) (*Record, error) {
	if input.IDProperty == "" || input.IDProperty == propertyObjectID {
		return nil, invalid("upserts need a unique idProperty other than %s", propertyObjectID)
	}

	record, err := s.store.Lookup(ctx, objectType, input.ID.String(), input.IDProperty, false)
	if err == nil {
		return s.store.Update(ctx, objectType, record.ID, input.Properties)
	}

	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.status != http.StatusNotFound {
		return nil, err
	}

	props := hubspot.Properties{}
	for name, value := range input.Properties {
		props[name] = value
	}

	props[input.IDProperty] = input.ID.String()

	return s.store.Create(ctx, objectType, props)
}

func (s *Server) batchArchive(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBatch(w, r)
	if !ok {
		return
	}

	for _, input := range req.Inputs {
		if !input.ID.IsNumeric() {
			writeError(w, r, invalid("id must be numeric, got %q", input.ID.String()))

			return
		}

		err := s.store.Archive(r.Context(), r.PathValue("objectType"), input.ID.Int64())
		if err != nil {
			writeError(w, r, fmt.Errorf("archiving batch: %w", err))

			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
