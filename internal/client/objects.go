package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/internal/http"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// ObjectsClient implements hubspot.ObjectsClient for one CRM object type.
type ObjectsClient[E hubspot.Entity] struct {
	httpClient   *http.Client
	objectType   string
	resourcePath string
	noun         string
	idProperty   string
}

// NewObjectsClient creates a client for objectType. idProperty is the unique
// property named identifiers resolve against when a call does not say otherwise.
func NewObjectsClient[E hubspot.Entity](httpClient *http.Client, objectType, noun, idProperty string) *ObjectsClient[E] {
	return &ObjectsClient[E]{
		httpClient:   httpClient,
		objectType:   objectType,
		resourcePath: constants.ObjectsPathV3 + objectType,
		noun:         noun,
		idProperty:   idProperty,
	}
}

// ObjectType implements hubspot.ObjectsClient.ObjectType.
func (c *ObjectsClient[E]) ObjectType() string {
	return c.objectType
}

// Create implements hubspot.ObjectsClient.Create.
func (c *ObjectsClient[E]) Create(ctx context.Context, entity E) (E, error) {
	var zero E

	input, err := createInput(entity)
	if err != nil {
		return zero, err
	}

	resp, err := c.httpClient.Post(ctx, c.resourcePath, input)
	if err != nil {
		return zero, fmt.Errorf("creating %s: %w", c.noun, err)
	}

	return c.decode(resp)
}

// Update implements hubspot.ObjectsClient.Update.
func (c *ObjectsClient[E]) Update(ctx context.Context, entity E) (E, error) {
	base := entity.Base()

	return c.update(ctx, entity, base.ID, base.IDProperty)
}

func (c *ObjectsClient[E]) update(ctx context.Context, entity E, id hubspot.Identifier, idProperty string) (E, error) {
	var zero E

	path, query, err := c.recordPath(id, idProperty)
	if err != nil {
		return zero, err
	}

	props, err := hubspot.EncodeProperties(entity)
	if err != nil {
		return zero, err
	}

	resp, err := c.httpClient.Do(ctx, &http.Request{
		Method: "PATCH",
		Path:   path,
		Query:  query,
		Body:   hubspot.Input{Properties: props},
	})
	if err != nil {
		return zero, fmt.Errorf("updating %s %s: %w", c.noun, id, err)
	}

	return c.decode(resp)
}

// CreateOrUpdate implements hubspot.ObjectsClient.CreateOrUpdate. Only a
// conflict reported by the create call leads to an update; the record to update
// is the entity's own id, the id HubSpot reports as existing, or the entity's
// value of the unique property.
func (c *ObjectsClient[E]) CreateOrUpdate(ctx context.Context, entity E) (E, error) {
	created, err := c.Create(ctx, entity)
	if err == nil {
		return created, nil
	}

	if !hubspot.IsConflict(err) {
		return created, err
	}

	id, idProperty := c.conflictTarget(entity, err)
	if id.IsZero() {
		return created, err
	}

	return c.update(ctx, entity, id, idProperty)
}

func (c *ObjectsClient[E]) conflictTarget(entity E, conflict error) (hubspot.Identifier, string) {
	base := entity.Base()
	if !base.ID.IsZero() {
		return base.ID, base.IDProperty
	}

	if existing, ok := hubspot.ExistingID(conflict); ok {
		return hubspot.NumericID(existing), ""
	}

	if c.idProperty == "" {
		return hubspot.Identifier{}, ""
	}

	props, err := hubspot.EncodeProperties(entity)
	if err != nil || props[c.idProperty] == "" {
		return hubspot.Identifier{}, ""
	}

	return hubspot.NamedID(props[c.idProperty]), c.idProperty
}

// Delete implements hubspot.ObjectsClient.Delete.
func (c *ObjectsClient[E]) Delete(ctx context.Context, entity E) error {
	id := entity.Base().ID

	switch {
	case id.IsZero():
		return &hubspot.ValidationError{Field: "id", Err: hubspot.ErrMissingIdentifier}
	case !id.IsNumeric():
		return &hubspot.ValidationError{Field: "id", Reason: fmt.Sprintf("got %q", id.String()), Err: hubspot.ErrNumericIDRequired}
	}

	return c.DeleteByID(ctx, id.Int64())
}

// DeleteByID implements hubspot.ObjectsClient.DeleteByID.
func (c *ObjectsClient[E]) DeleteByID(ctx context.Context, id int64) error {
	if id <= 0 {
		return &hubspot.ValidationError{Field: "id", Reason: fmt.Sprintf("got %d", id), Err: hubspot.ErrNumericIDRequired}
	}

	_, err := c.httpClient.Delete(ctx, c.resourcePath+"/"+strconv.FormatInt(id, 10))
	if err != nil {
		return fmt.Errorf("archiving %s %d: %w", c.noun, id, err)
	}

	return nil
}

// GetByUniqueID implements hubspot.ObjectsClient.GetByUniqueID.
func (c *ObjectsClient[E]) GetByUniqueID(ctx context.Context, id hubspot.Identifier, opts *hubspot.GetOptions) (E, error) {
	var zero E

	idProperty := ""
	if opts != nil {
		idProperty = opts.IDProperty
	}

	path, query, err := c.recordPath(id, idProperty)
	if err != nil {
		return zero, err
	}

	for key, values := range opts.Values() {
		query[key] = values
	}

	resp, err := c.httpClient.Get(ctx, path, query)
	if err != nil {
		if hubspot.IsNotFound(err) {
			return zero, nil
		}

		return zero, fmt.Errorf("getting %s %s: %w", c.noun, id, err)
	}

	return c.decode(resp)
}

// Search implements hubspot.ObjectsClient.Search. Nil options search for
// records created in the last seven days. The result carries a copy of the
// options advanced to the next page.
func (c *ObjectsClient[E]) Search(ctx context.Context, opts *hubspot.SearchRequestOptions) (*hubspot.Envelope[E], error) {
	if opts == nil {
		opts = hubspot.NewRecentlyCreatedOptions()
	}

	next := opts.Clone()

	resp, err := c.httpClient.Post(ctx, c.resourcePath+"/search", next)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", c.objectType, err)
	}

	return c.page(resp, next)
}

// SearchAll implements hubspot.ObjectsClient.SearchAll.
func (c *ObjectsClient[E]) SearchAll(ctx context.Context, opts *hubspot.SearchRequestOptions) ([]E, error) {
	if opts == nil {
		opts = hubspot.NewRecentlyCreatedOptions()
	}

	return hubspot.NewSearchIterator[E](ctx, c.Search, opts).All()
}

// List implements hubspot.ObjectsClient.List. Filters and sort do not apply;
// HubSpot pages list calls by record id.
func (c *ObjectsClient[E]) List(ctx context.Context, opts *hubspot.SearchRequestOptions) (*hubspot.Envelope[E], error) {
	if opts == nil {
		opts = hubspot.NewSearchRequestOptions()
	}

	next := opts.Clone()

	resp, err := c.httpClient.Get(ctx, c.resourcePath, next.ListValues())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c.objectType, err)
	}

	return c.page(resp, next)
}

// RecentlyCreated implements hubspot.ObjectsClient.RecentlyCreated.
func (c *ObjectsClient[E]) RecentlyCreated(ctx context.Context) (*hubspot.Envelope[E], error) {
	return c.Search(ctx, hubspot.NewRecentlyCreatedOptions())
}

// RecentlyUpdated implements hubspot.ObjectsClient.RecentlyUpdated.
func (c *ObjectsClient[E]) RecentlyUpdated(ctx context.Context) (*hubspot.Envelope[E], error) {
	return c.Search(ctx, hubspot.NewRecentlyUpdatedOptions())
}

// BatchCreate implements hubspot.ObjectsClient.BatchCreate.
func (c *ObjectsClient[E]) BatchCreate(ctx context.Context, entities []E) (*hubspot.Envelope[E], error) {
	err := checkBatchSize(len(entities))
	if err != nil || len(entities) == 0 {
		return hubspot.NewEnvelope[E](), err
	}

	inputs := make([]*hubspot.Input, 0, len(entities))

	for _, entity := range entities {
		input, err := createInput(entity)
		if err != nil {
			return nil, err
		}

		inputs = append(inputs, input)
	}

	return c.postBatch(ctx, "create", hubspot.NewEnvelope(inputs...), nil)
}

// BatchUpdate implements hubspot.ObjectsClient.BatchUpdate.
func (c *ObjectsClient[E]) BatchUpdate(ctx context.Context, entities []E) (*hubspot.Envelope[E], error) {
	err := checkBatchSize(len(entities))
	if err != nil || len(entities) == 0 {
		return hubspot.NewEnvelope[E](), err
	}

	inputs := make([]*hubspot.Input, 0, len(entities))

	for i, entity := range entities {
		input, err := hubspot.NewInput(entity)
		if err != nil {
			return nil, err
		}

		if input.ID.IsZero() {
			return nil, &hubspot.ValidationError{Field: fmt.Sprintf("inputs[%d].id", i), Err: hubspot.ErrMissingIdentifier}
		}

		if input.ID.IsNamed() && input.IDProperty == "" {
			input.IDProperty = c.idProperty
			if input.IDProperty == "" {
				return nil, &hubspot.ValidationError{Field: fmt.Sprintf("inputs[%d].idProperty", i), Err: hubspot.ErrMissingIDProperty}
			}
		}

		input.Associations = nil
		inputs = append(inputs, input)
	}

	return c.postBatch(ctx, "update", hubspot.NewEnvelope(inputs...), nil)
}

// BatchUpsert implements hubspot.ObjectsClient.BatchUpsert. Each entity is
// matched on its value of idProperty; HubSpot creates the ones that do not exist.
func (c *ObjectsClient[E]) BatchUpsert(ctx context.Context, entities []E, idProperty string) (*hubspot.Envelope[E], error) {
	err := checkBatchSize(len(entities))
	if err != nil || len(entities) == 0 {
		return hubspot.NewEnvelope[E](), err
	}

	if idProperty == "" {
		idProperty = c.idProperty
	}

	if idProperty == "" {
		return nil, &hubspot.ValidationError{Field: "idProperty", Err: hubspot.ErrMissingIDProperty}
	}

	inputs := make([]*hubspot.Input, 0, len(entities))

	for i, entity := range entities {
		props, err := hubspot.EncodeProperties(entity)
		if err != nil {
			return nil, err
		}

		id := entity.Base().ID
		if !id.IsNamed() {
			id = hubspot.NamedID(props[idProperty])
		}

		if id.IsZero() {
			return nil, &hubspot.ValidationError{
				Field:  fmt.Sprintf("inputs[%d].%s", i, idProperty),
				Reason: "upserts are matched on the unique property",
				Err:    hubspot.ErrMissingIdentifier,
			}
		}

		inputs = append(inputs, &hubspot.Input{ID: id, IDProperty: idProperty, Properties: props})
	}

	return c.postBatch(ctx, "upsert", hubspot.NewEnvelope(inputs...), nil)
}

// BatchCreateOrUpdate implements hubspot.ObjectsClient.BatchCreateOrUpdate.
// Entities with an id are sent to batch update, the rest to batch create, in
// that order. Each call may carry up to 100 records; both sizes are checked
// before either call is sent. The merged result lists the updated records
// first. The two calls are not atomic: when create fails the update results
// are returned with the error.
func (c *ObjectsClient[E]) BatchCreateOrUpdate(ctx context.Context, entities []E) (*hubspot.Envelope[E], error) {
	var toUpdate, toCreate []E

	for _, entity := range entities {
		if entity.Base().ID.IsZero() {
			toCreate = append(toCreate, entity)
		} else {
			toUpdate = append(toUpdate, entity)
		}
	}

	for _, part := range [][]E{toUpdate, toCreate} {
		err := checkBatchSize(len(part))
		if err != nil {
			return nil, err
		}
	}

	result := hubspot.NewEnvelope[E]()

	if len(toUpdate) > 0 {
		updated, err := c.BatchUpdate(ctx, toUpdate)
		if err != nil {
			return nil, err
		}

		result.Merge("update", updated)
	}

	if len(toCreate) > 0 {
		created, err := c.BatchCreate(ctx, toCreate)
		if err != nil {
			if result.Len() > 0 {
				return result, err
			}

			return nil, err
		}

		result.Merge("create", created)
	}

	return result, nil
}

type batchReadRequest struct {
	Inputs                []hubspot.RecordRef `json:"inputs"`
	Properties            []string            `json:"properties,omitempty"`
	PropertiesWithHistory []string            `json:"propertiesWithHistory,omitempty"`
	IDProperty            string              `json:"idProperty,omitempty"`
}

// BatchRead implements hubspot.ObjectsClient.BatchRead.
func (c *ObjectsClient[E]) BatchRead(ctx context.Context, ids []hubspot.Identifier, opts *hubspot.GetOptions) (*hubspot.Envelope[E], error) {
	err := checkBatchSize(len(ids))
	if err != nil || len(ids) == 0 {
		return hubspot.NewEnvelope[E](), err
	}

	if opts == nil {
		opts = &hubspot.GetOptions{}
	}

	req := batchReadRequest{
		Inputs:                make([]hubspot.RecordRef, 0, len(ids)),
		Properties:            opts.Properties,
		PropertiesWithHistory: opts.PropertiesWithHistory,
		IDProperty:            opts.IDProperty,
	}

	for i, id := range ids {
		if id.IsZero() {
			return nil, &hubspot.ValidationError{Field: fmt.Sprintf("inputs[%d].id", i), Err: hubspot.ErrMissingIdentifier}
		}

		if id.IsNamed() && req.IDProperty == "" {
			req.IDProperty = c.idProperty
			if req.IDProperty == "" {
				return nil, &hubspot.ValidationError{Field: "idProperty", Err: hubspot.ErrMissingIDProperty}
			}
		}

		req.Inputs = append(req.Inputs, hubspot.RecordRef{ID: id})
	}

	var query url.Values
	if opts.Archived {
		query = url.Values{"archived": []string{"true"}}
	}

	return c.postBatch(ctx, "read", req, query)
}

// BatchArchive implements hubspot.ObjectsClient.BatchArchive. HubSpot answers
// with no content; the returned envelope only carries the ARCHIVED status.
func (c *ObjectsClient[E]) BatchArchive(ctx context.Context, ids []int64) (*hubspot.Envelope[E], error) {
	err := checkBatchSize(len(ids))
	if err != nil || len(ids) == 0 {
		return hubspot.NewEnvelope[E](), err
	}

	inputs := make([]hubspot.RecordRef, 0, len(ids))

	for i, id := range ids {
		if id <= 0 {
			return nil, &hubspot.ValidationError{Field: fmt.Sprintf("inputs[%d].id", i), Reason: fmt.Sprintf("got %d", id), Err: hubspot.ErrNumericIDRequired}
		}

		inputs = append(inputs, hubspot.RecordID(id))
	}

	_, err = c.httpClient.Post(ctx, c.resourcePath+"/batch/archive", hubspot.NewEnvelope(inputs...))
	if err != nil {
		return nil, fmt.Errorf("archiving %s batch: %w", c.objectType, err)
	}

	result := hubspot.NewEnvelope[E]()
	result.Status = hubspot.BatchStatusArchived

	return result, nil
}

func (c *ObjectsClient[E]) postBatch(ctx context.Context, action string, body interface{}, query url.Values) (*hubspot.Envelope[E], error) {
	resp, err := c.httpClient.Do(ctx, &http.Request{
		Method: "POST",
		Path:   c.resourcePath + "/batch/" + action,
		Query:  query,
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s batch: %w", batchVerbs[action], c.objectType, err)
	}

	var result hubspot.Envelope[E]

	err = http.DecodeJSON(resp, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing %s batch %s response: %w", c.objectType, action, err)
	}

	return &result, nil
}

var batchVerbs = map[string]string{
	"create": "creating",
	"update": "updating",
	"upsert": "upserting",
	"read":   "reading",
}

// recordPath resolves the path and query addressing one record. Named
// identifiers are looked up through idProperty, falling back to the client's
// unique property.
func (c *ObjectsClient[E]) recordPath(id hubspot.Identifier, idProperty string) (string, url.Values, error) {
	query := url.Values{}

	switch {
	case id.IsZero():
		return "", nil, &hubspot.ValidationError{Field: "id", Err: hubspot.ErrMissingIdentifier}
	case id.IsNumeric():
		if idProperty != "" {
			query.Set("idProperty", idProperty)
		}

		return c.resourcePath + "/" + id.String(), query, nil
	}

	if idProperty == "" {
		idProperty = c.idProperty
	}

	if idProperty == "" {
		return "", nil, &hubspot.ValidationError{
			Field:  "idProperty",
			Reason: fmt.Sprintf("%q is not a record id", id.String()),
			Err:    hubspot.ErrMissingIDProperty,
		}
	}

	query.Set("idProperty", idProperty)

	return c.resourcePath + "/" + url.PathEscape(id.Name()), query, nil
}

func (c *ObjectsClient[E]) decode(resp *http.Response) (E, error) {
	entity := hubspot.NewEntity[E]()

	err := hubspot.FromWire(resp.Body, hubspot.PropertiesBag, entity)
	if err != nil {
		var zero E

		return zero, fmt.Errorf("parsing %s response: %w", c.noun, err)
	}

	return entity, nil
}

func (c *ObjectsClient[E]) page(resp *http.Response, next *hubspot.SearchRequestOptions) (*hubspot.Envelope[E], error) {
	var result hubspot.Envelope[E]

	err := http.DecodeJSON(resp, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing %s page: %w", c.objectType, err)
	}

	result.Attach(next)
	result.Offset()

	return &result, nil
}

func createInput(entity hubspot.Entity) (*hubspot.Input, error) {
	input, err := hubspot.NewInput(entity)
	if err != nil {
		return nil, err
	}

	input.ID = hubspot.Identifier{}
	input.IDProperty = ""

	return input, nil
}

func checkBatchSize(n int) error {
	if n > constants.MaxBatchSize {
		return &hubspot.ValidationError{Field: "inputs", Reason: fmt.Sprintf("got %d", n), Err: hubspot.ErrBatchTooLarge}
	}

	return nil
}
