package hubspottest

import (
	"net/http"
	"strconv"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

func (s *Server) associationRoutes() {
	s.mux.HandleFunc("PUT /crm/v4/objects/{fromType}/{fromId}/associations/default/{toType}/{toId}", s.associateDefault)
	s.mux.HandleFunc("PUT /crm/v4/objects/{fromType}/{fromId}/associations/{toType}/{toId}", s.associateLabeled)
	s.mux.HandleFunc("GET /crm/v4/objects/{fromType}/{fromId}/associations/{toType}", s.listAssociations)
	s.mux.HandleFunc("DELETE /crm/v4/objects/{fromType}/{fromId}/associations/{toType}/{toId}", s.removeAssociation)

	s.mux.HandleFunc("POST /crm/v4/associations/{fromType}/{toType}/batch/associate/default", s.batchAssociateDefault)
	s.mux.HandleFunc("POST /crm/v4/associations/{fromType}/{toType}/batch/create", s.batchAssociate)
	s.mux.HandleFunc("POST /crm/v4/associations/{fromType}/{toType}/batch/read", s.batchReadAssociations)
	s.mux.HandleFunc("POST /crm/v4/associations/{fromType}/{toType}/batch/archive", s.batchArchiveAssociations)
	s.mux.HandleFunc("POST /crm/v4/associations/{fromType}/{toType}/batch/labels/archive", s.batchArchiveLabels)

	s.mux.HandleFunc("GET /crm/v4/associations/{fromType}/{toType}/labels", s.listLabels)
	s.mux.HandleFunc("POST /crm/v4/associations/{fromType}/{toType}/labels", s.createLabel)
	s.mux.HandleFunc("PUT /crm/v4/associations/{fromType}/{toType}/labels", s.updateLabel)
	s.mux.HandleFunc("DELETE /crm/v4/associations/{fromType}/{toType}/labels/{typeId}", s.deleteLabel)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("%s must be a record id, got %q", name, r.PathValue(name))
	}

	return id, nil
}

func pathIDs(r *http.Request) (int64, int64, error) {
	fromID, err := pathID(r, "fromId")
	if err != nil {
		return 0, 0, err
	}

	toID, err := pathID(r, "toId")
	if err != nil {
		return 0, 0, err
	}

	return fromID, toID, nil
}

func labelsOf(types []associationType) []hubspot.AssociationLabel {
	labels := make([]hubspot.AssociationLabel, 0, len(types))
	for _, t := range types {
		labels = append(labels, t.label())
	}

	return labels
}

func createResult(fromType string, fromID int64, toType string, toID int64, types []associationType) hubspot.AssociationCreateResult {
	fromTypeID, _ := hubspot.ObjectTypeID(fromType)
	toTypeID, _ := hubspot.ObjectTypeID(toType)

	result := hubspot.AssociationCreateResult{
		FromObjectTypeID: fromTypeID,
		FromObjectID:     hubspot.NumericID(fromID),
		ToObjectTypeID:   toTypeID,
		ToObjectID:       hubspot.NumericID(toID),
		Labels:           []string{},
	}

	for _, t := range types {
		if t.Label != "" {
			result.Labels = append(result.Labels, t.Label)
		}
	}

	return result
}

func (s *Server) associateDefault(w http.ResponseWriter, r *http.Request) {
	fromID, toID, err := pathIDs(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	fromType, toType := r.PathValue("fromType"), r.PathValue("toType")

	types, err := s.store.Associate(r.Context(), fromType, fromID, toType, toID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  hubspot.BatchStatusComplete,
		"results": []hubspot.AssociationCreateResult{createResult(fromType, fromID, toType, toID, types)},
	})
}

func (s *Server) associateLabeled(w http.ResponseWriter, r *http.Request) {
	fromID, toID, err := pathIDs(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	var requested []hubspot.AssociationTypeID

	err = decodeBody(r, &requested)
	if err != nil {
		writeError(w, r, err)

		return
	}

	typeIDs := make([]int64, 0, len(requested))
	for _, typeID := range requested {
		typeIDs = append(typeIDs, typeID.ID())
	}

	fromType, toType := r.PathValue("fromType"), r.PathValue("toType")

	types, err := s.store.Associate(r.Context(), fromType, fromID, toType, toID, typeIDs...)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusCreated, createResult(fromType, fromID, toType, toID, types))
}

type associatedResponse struct {
	ToObjectID hubspot.Identifier         `json:"toObjectId"`
	Types      []hubspot.AssociationLabel `json:"associationTypes"`
}

func (s *Server) listAssociations(w http.ResponseWriter, r *http.Request) {
	fromID, err := pathID(r, "fromId")
	if err == nil {
		_, err = s.store.Get(r.Context(), r.PathValue("fromType"), fromID, false)
	}

	if err != nil {
		writeError(w, r, err)

		return
	}

	query := r.URL.Query()
	limit := constants.DefaultAssociationPageSize

	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > constants.DefaultAssociationPageSize {
			writeError(w, r, invalid("limit must be between 1 and %d, got %q", constants.DefaultAssociationPageSize, raw))

			return
		}
	}

	var after int64

	if raw := query.Get("after"); raw != "" {
		after, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, invalid("after must be a record id, got %q", raw))

			return
		}
	}

	linked, next, err := s.store.Associations(r.Context(), fromID, r.PathValue("toType"), after, limit)
	if err != nil {
		writeError(w, r, err)

		return
	}

	results := make([]associatedResponse, 0, len(linked))
	for _, link := range linked {
		results = append(results, associatedResponse{ToObjectID: hubspot.NumericID(link.ToID), Types: labelsOf(link.Types)})
	}

	response := map[string]interface{}{"results": results}
	if next > 0 {
		response["paging"] = nextPage(strconv.FormatInt(next, 10))
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) removeAssociation(w http.ResponseWriter, r *http.Request) {
	fromID, toID, err := pathIDs(r)
	if err == nil {
		err = s.store.RemoveAssociation(r.Context(), fromID, toID)
	}

	if err != nil {
		writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type associationBatchRequest struct {
	Inputs []hubspot.AssociationInput `json:"inputs"`
}

type associationBatchResponse struct {
	Status      hubspot.BatchStatus  `json:"status"`
	Results     interface{}          `json:"results"`
	NumErrors   int                  `json:"numErrors,omitempty"`
	Errors      []hubspot.BatchError `json:"errors,omitempty"`
	StartedAt   string               `json:"startedAt"`
	CompletedAt string               `json:"completedAt"`
}

func (s *Server) associateBatch(w http.ResponseWriter, r *http.Request, labeled bool) {
	var req associationBatchRequest

	err := decodeBody(r, &req)
	if err != nil {
		writeError(w, r, err)

		return
	}

	fromType, toType := r.PathValue("fromType"), r.PathValue("toType")
	run := newBatchRun()
	results := []hubspot.AssociationCreateResult{}

	for _, input := range req.Inputs {
		var typeIDs []int64

		if labeled {
			for _, t := range input.Types {
				typeIDs = append(typeIDs, t.ID())
			}
		}

		fromID, toID := input.From.ID.Int64(), input.To.ID.Int64()

		types, err := s.store.Associate(r.Context(), fromType, fromID, toType, toID, typeIDs...)
		if err != nil {
			run.errors = append(run.errors, batchError(err, input.From.ID.String(), input.To.ID.String()))

			continue
		}

		results = append(results, createResult(fromType, fromID, toType, toID, types))
	}

	status := http.StatusCreated
	if len(run.errors) > 0 {
		status = http.StatusMultiStatus
	}

	writeJSON(w, status, associationBatchResponse{
		Status:      hubspot.BatchStatusComplete,
		Results:     results,
		NumErrors:   len(run.errors),
		Errors:      run.errors,
		StartedAt:   formatTime(run.started),
		CompletedAt: formatTime(run.started),
	})
}

func (s *Server) batchAssociateDefault(w http.ResponseWriter, r *http.Request) {
	s.associateBatch(w, r, false)
}

func (s *Server) batchAssociate(w http.ResponseWriter, r *http.Request) {
	s.associateBatch(w, r, true)
}

type associationReadResult struct {
	From hubspot.RecordRef    `json:"from"`
	To   []associatedResponse `json:"to"`
}

func (s *Server) batchReadAssociations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Inputs []hubspot.RecordRef `json:"inputs"`
	}

	err := decodeBody(r, &req)
	if err != nil {
		writeError(w, r, err)

		return
	}

	run := newBatchRun()
	results := []associationReadResult{}

	for _, input := range req.Inputs {
		linked, _, err := s.store.Associations(r.Context(), input.ID.Int64(), r.PathValue("toType"), 0, 0)
		if err != nil {
			run.errors = append(run.errors, batchError(err, input.ID.String()))

			continue
		}

		result := associationReadResult{From: input, To: []associatedResponse{}}
		for _, link := range linked {
			result.To = append(result.To, associatedResponse{ToObjectID: hubspot.NumericID(link.ToID), Types: labelsOf(link.Types)})
		}

		results = append(results, result)
	}

	writeJSON(w, http.StatusOK, associationBatchResponse{
		Status:      hubspot.BatchStatusComplete,
		Results:     results,
		NumErrors:   len(run.errors),
		Errors:      run.errors,
		StartedAt:   formatTime(run.started),
		CompletedAt: formatTime(run.started),
	})
}

func (s *Server) batchArchiveAssociations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Inputs []hubspot.AssociationArchiveInput `json:"inputs"`
	}

	err := decodeBody(r, &req)
	if err != nil {
		writeError(w, r, err)

		return
	}

	for _, input := range req.Inputs {
		for _, to := range input.To {
			err = s.store.RemoveAssociation(r.Context(), input.From.ID.Int64(), to.ID.Int64())
			if err != nil {
				writeError(w, r, err)

				return
			}
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) batchArchiveLabels(w http.ResponseWriter, r *http.Request) {
	var req associationBatchRequest

	err := decodeBody(r, &req)
	if err != nil {
		writeError(w, r, err)

		return
	}

	for _, input := range req.Inputs {
		typeIDs := make([]int64, 0, len(input.Types))
		for _, t := range input.Types {
			typeIDs = append(typeIDs, t.ID())
		}

		if len(typeIDs) == 0 {
			writeError(w, r, invalid("inputs need at least one association type"))

			return
		}

		err = s.store.RemoveAssociation(r.Context(), input.From.ID.Int64(), input.To.ID.Int64(), typeIDs...)
		if err != nil {
			writeError(w, r, err)

			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listLabels(w http.ResponseWriter, r *http.Request) {
	types, err := s.store.Labels(r.Context(), r.PathValue("fromType"), r.PathValue("toType"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": labelsOf(types)})
}

func (s *Server) createLabel(w http.ResponseWriter, r *http.Request) {
	var definition hubspot.AssociationTypeDefinition

	err := decodeBody(r, &definition)
	if err != nil {
		writeError(w, r, err)

		return
	}

	types, err := s.store.CreateLabel(r.Context(), r.PathValue("fromType"), r.PathValue("toType"), definition)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": labelsOf(types)})
}

func (s *Server) updateLabel(w http.ResponseWriter, r *http.Request) {
	var update hubspot.AssociationTypeUpdate

	err := decodeBody(r, &update)
	if err == nil {
		err = s.store.UpdateLabel(r.Context(), r.PathValue("fromType"), r.PathValue("toType"), update)
	}

	if err != nil {
		writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteLabel(w http.ResponseWriter, r *http.Request) {
	typeID, err := pathID(r, "typeId")
	if err == nil {
		err = s.store.DeleteLabel(r.Context(), r.PathValue("fromType"), r.PathValue("toType"), typeID)
	}

	if err != nil {
		writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
