package hubspot

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"
)

// BatchStatus is the processing state HubSpot reports for a batch call.
type BatchStatus string

// Batch statuses. Archived is assigned locally to successful archive calls,
// which return no body.
const (
	BatchStatusPending    BatchStatus = "PENDING"
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusCanceled   BatchStatus = "CANCELED"
	BatchStatusComplete   BatchStatus = "COMPLETE"
	BatchStatusArchived   BatchStatus = "ARCHIVED"
)

// Valid reports whether s is a known status. The empty status is valid.
// Statuses HubSpot adds later decode as they are and report false here.
func (s BatchStatus) Valid() bool {
	switch s {
	case "", BatchStatusPending, BatchStatusProcessing, BatchStatusCanceled, BatchStatusComplete, BatchStatusArchived:
		return true
	default:
		return false
	}
}

// BatchError is one per-item failure reported by a batch or collection call.
type BatchError struct {
	Status        string              `json:"status"                  yaml:"status"`
	Category      string              `json:"category"                yaml:"category"`
	SubCategory   string              `json:"subCategory,omitempty"   yaml:"subCategory,omitempty"`
	Message       string              `json:"message"                 yaml:"message"`
	CorrelationID string              `json:"correlationId,omitempty" yaml:"correlationId,omitempty"`
	Context       map[string][]string `json:"context,omitempty"       yaml:"context,omitempty"`
}

// IDs returns the identifiers of the offending records.
func (e BatchError) IDs() []string {
	return e.Context["ids"]
}

// Error implements the error interface.
func (e BatchError) Error() string {
	ids := e.IDs()
	if len(ids) == 0 {
		return fmt.Sprintf("%s: %s", e.Category, e.Message)
	}

	return fmt.Sprintf("%s: %s (ids: %s)", e.Category, e.Message, strings.Join(ids, ", "))
}

// PagingCursor points at the next page.
type PagingCursor struct {
	After string `json:"after"          yaml:"after"`
	Link  string `json:"link,omitempty" yaml:"link,omitempty"`
}

// Paging is the continuation block of a collection response.
type Paging struct {
	Next *PagingCursor `json:"next,omitempty" yaml:"next,omitempty"`
}

// CallStatus records the outcome of one physical call folded into an envelope.
type CallStatus struct {
	Operation string      `json:"operation" yaml:"operation"`
	Status    BatchStatus `json:"status"    yaml:"status"`
}

// Envelope is an ordered collection of records plus the metadata of the calls
// that produced it. Requests serialize it as {"inputs": [...]} and responses
// are read from {"results": [...]}; both views share one sequence.
type Envelope[T any] struct {
	entities []T

	Status      BatchStatus
	Total       int
	Errors      []BatchError
	NumErrors   int
	Paging      *Paging
	StartedAt   time.Time
	CompletedAt time.Time
	Calls       []CallStatus

	options *SearchRequestOptions
}

// NewEnvelope wraps entities for a request.
func NewEnvelope[T any](entities ...T) *Envelope[T] {
	return &Envelope[T]{entities: entities}
}

// Entities returns the records in order.
func (e *Envelope[T]) Entities() []T {
	return e.entities
}

// Len returns the number of records.
func (e *Envelope[T]) Len() int {
	return len(e.entities)
}

// Add appends records.
func (e *Envelope[T]) Add(entities ...T) {
	e.entities = append(e.entities, entities...)
}

// MoreResultsAvailable reports whether the response pointed at a next page.
func (e *Envelope[T]) MoreResultsAvailable() bool {
	return e.Paging != nil && e.Paging.Next != nil && e.Paging.Next.After != ""
}

// Offset returns the continuation token, or "" on the last page. When options
// are attached the token is also written into them, so passing the same
// options to the next call resumes after this page.
func (e *Envelope[T]) Offset() string {
	token := ""
	if e.MoreResultsAvailable() {
		token = e.Paging.Next.After
	}

	if e.options != nil {
		e.options.Offset = token
	}

	return token
}

// Options returns the options attached to this result.
func (e *Envelope[T]) Options() *SearchRequestOptions {
	return e.options
}

// Attach associates options with the result for continuation.
func (e *Envelope[T]) Attach(opts *SearchRequestOptions) {
	e.options = opts
}

// TotalErrors returns the number of per-item errors, trusting the larger of
// the reported count and the errors received.
func (e *Envelope[T]) TotalErrors() int {
	return max(e.NumErrors, len(e.Errors))
}

// HasErrors reports whether any per-item error was returned.
func (e *Envelope[T]) HasErrors() bool {
	return e.TotalErrors() > 0
}

// Merge appends the records and errors of other, recording its status under operation.
func (e *Envelope[T]) Merge(operation string, other *Envelope[T]) {
	if other == nil {
		return
	}

	e.entities = append(e.entities, other.entities...)
	e.Errors = append(e.Errors, other.Errors...)
	e.NumErrors += other.TotalErrors()
	e.Total += other.Total

	if len(other.Calls) > 0 {
		e.Calls = append(e.Calls, other.Calls...)
	} else {
		e.Calls = append(e.Calls, CallStatus{Operation: operation, Status: other.Status})
	}

	if e.StartedAt.IsZero() || (!other.StartedAt.IsZero() && other.StartedAt.Before(e.StartedAt)) {
		e.StartedAt = other.StartedAt
	}

	if other.CompletedAt.After(e.CompletedAt) {
		e.CompletedAt = other.CompletedAt
	}

	e.Status = combinedStatus(e.Calls)
}

// StatusSummary joins the per-call statuses, e.g. "update: COMPLETE, create: COMPLETE".
func (e *Envelope[T]) StatusSummary() string {
	if len(e.Calls) == 0 {
		return string(e.Status)
	}

	parts := make([]string, 0, len(e.Calls))
	for _, call := range e.Calls {
		parts = append(parts, call.Operation+": "+string(call.Status))
	}

	return strings.Join(parts, ", ")
}

func combinedStatus(calls []CallStatus) BatchStatus {
	var status BatchStatus

	for _, call := range calls {
		switch {
		case status == "":
			status = call.Status
		case call.Status != status && call.Status != BatchStatusComplete:
			status = call.Status
		}
	}

	return status
}

// MarshalJSON renders the request view. Records are laid out as
// properties-bag inputs; other element types are encoded as they are.
func (e *Envelope[T]) MarshalJSON() ([]byte, error) {
	inputs := make([]interface{}, 0, len(e.entities))

	for _, item := range e.entities {
		if entity, ok := any(item).(Entity); ok && !isNilEntity(entity) {
			input, err := NewInput(entity)
			if err != nil {
				return nil, err
			}

			inputs = append(inputs, input)

			continue
		}

		inputs = append(inputs, item)
	}

	return json.Marshal(struct {
		Inputs []interface{} `json:"inputs"`
	}{Inputs: inputs})
}

type envelopeResponse struct {
	Status      BatchStatus       `json:"status"`
	Results     []json.RawMessage `json:"results"`
	Total       int               `json:"total"`
	Errors      []BatchError      `json:"errors"`
	NumErrors   int               `json:"numErrors"`
	Paging      *Paging           `json:"paging"`
	StartedAt   time.Time         `json:"startedAt"`
	CompletedAt time.Time         `json:"completedAt"`
}

// UnmarshalJSON reads the response view.
func (e *Envelope[T]) UnmarshalJSON(data []byte) error {
	var resp envelopeResponse

	err := json.Unmarshal(data, &resp)
	if err != nil {
		return fmt.Errorf("decoding collection response: %w", err)
	}

	entities := make([]T, 0, len(resp.Results))

	for i, raw := range resp.Results {
		item, err := decodeElement[T](raw)
		if err != nil {
			return fmt.Errorf("decoding result %d: %w", i, err)
		}

		entities = append(entities, item)
	}

	e.entities = entities
	e.Status = resp.Status
	e.Total = resp.Total
	e.Errors = resp.Errors
	e.NumErrors = resp.NumErrors
	e.Paging = resp.Paging
	e.StartedAt = resp.StartedAt
	e.CompletedAt = resp.CompletedAt

	return nil
}

var entityInterface = reflect.TypeOf((*Entity)(nil)).Elem()

func decodeElement[T any](raw json.RawMessage) (T, error) {
	var item T

	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Pointer && t.Implements(entityInterface) && t.Elem().Kind() == reflect.Struct {
		value := reflect.New(t.Elem())
		entity, _ := value.Interface().(Entity)

		err := FromWire(raw, PropertiesBag, entity)
		if err != nil {
			return item, err
		}

		item, _ = value.Interface().(T)

		return item, nil
	}

	err := json.Unmarshal(raw, &item)
	if err != nil {
		return item, fmt.Errorf("decoding element: %w", err)
	}

	return item, nil
}

func isNilEntity(entity Entity) bool {
	v := reflect.ValueOf(entity)

	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Identifiers returns the ids of the records an envelope of entities holds.
func Identifiers[E Entity](envelope *Envelope[E]) []Identifier {
	ids := make([]Identifier, 0, envelope.Len())
	for _, entity := range envelope.Entities() {
		ids = append(ids, entity.Base().ID)
	}

	return slices.Clip(ids)
}
