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

// AssociationsClient implements hubspot.AssociationsClient over the v4 API.
type AssociationsClient struct {
	httpClient *http.Client
}

// NewAssociationsClient creates a new associations client.
func NewAssociationsClient(httpClient *http.Client) *AssociationsClient {
	return &AssociationsClient{
		httpClient: httpClient,
	}
}

func recordAssociationsPath(from hubspot.ObjectRef) string {
	return constants.ObjectsPathV4 + from.Type + "/" + strconv.FormatInt(from.ID, 10) + "/associations/"
}

func batchAssociationsPath(fromType, toType string) string {
	return constants.AssociationsPathV4 + fromType + "/" + toType
}

// Associate implements hubspot.AssociationsClient.Associate.
func (c *AssociationsClient) Associate(ctx context.Context, from, to hubspot.ObjectRef, types ...hubspot.AssociationTypeID) error {
	err := validateRefs(from, to)
	if err != nil {
		return err
	}

	toID := strconv.FormatInt(to.ID, 10)

	if len(types) == 0 {
		_, err = c.httpClient.Put(ctx, recordAssociationsPath(from)+"default/"+to.Type+"/"+toID, nil)
		if err != nil {
			return fmt.Errorf("associating %s with %s: %w", from, to, err)
		}

		return nil
	}

	_, err = c.httpClient.Put(ctx, recordAssociationsPath(from)+to.Type+"/"+toID, types)
	if err != nil {
		return fmt.Errorf("associating %s with %s: %w", from, to, err)
	}

	return nil
}

// List implements hubspot.AssociationsClient.List. Without options pages hold
// up to 500 records.
func (c *AssociationsClient) List(ctx context.Context, from hubspot.ObjectRef, toType string, opts *hubspot.SearchRequestOptions) (*hubspot.Envelope[hubspot.AssociatedObject], error) {
	pageSize := constants.DefaultAssociationPageSize
	if opts != nil {
		pageSize = opts.Limit()
	}

	return c.list(ctx, from, toType, opts, pageSize)
}

func (c *AssociationsClient) list(ctx context.Context, from hubspot.ObjectRef, toType string, opts *hubspot.SearchRequestOptions, pageSize int) (*hubspot.Envelope[hubspot.AssociatedObject], error) {
	err := from.Validate()
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(pageSize))

	var next *hubspot.SearchRequestOptions

	if opts != nil {
		next = opts.Clone()

		if next.Offset != "" {
			query.Set("after", next.Offset)
		}
	}

	resp, err := c.httpClient.Get(ctx, recordAssociationsPath(from)+toType, query)
	if err != nil {
		return nil, fmt.Errorf("listing %s associations of %s: %w", toType, from, err)
	}

	var result hubspot.Envelope[hubspot.AssociatedObject]

	err = http.DecodeJSON(resp, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing associations response: %w", err)
	}

	if next != nil {
		result.Attach(next)
		result.Offset()
	}

	return &result, nil
}

// ListAll implements hubspot.AssociationsClient.ListAll. Every page holds up
// to 500 records.
func (c *AssociationsClient) ListAll(ctx context.Context, from hubspot.ObjectRef, toType string) ([]hubspot.AssociatedObject, error) {
	fetch := func(ctx context.Context, opts *hubspot.SearchRequestOptions) (*hubspot.Envelope[hubspot.AssociatedObject], error) {
		return c.list(ctx, from, toType, opts, constants.DefaultAssociationPageSize)
	}

	return hubspot.NewSearchIterator[hubspot.AssociatedObject](ctx, fetch, nil).All()
}

// Remove implements hubspot.AssociationsClient.Remove. Every label between
// the two records is removed.
func (c *AssociationsClient) Remove(ctx context.Context, from, to hubspot.ObjectRef) error {
	err := validateRefs(from, to)
	if err != nil {
		return err
	}

	_, err = c.httpClient.Delete(ctx, recordAssociationsPath(from)+to.Type+"/"+strconv.FormatInt(to.ID, 10))
	if err != nil {
		return fmt.Errorf("removing association of %s with %s: %w", from, to, err)
	}

	return nil
}

// BatchAssociateDefault implements hubspot.AssociationsClient.BatchAssociateDefault.
func (c *AssociationsClient) BatchAssociateDefault(ctx context.Context, fromType, toType string, inputs []hubspot.AssociationInput) (*hubspot.Envelope[hubspot.AssociationCreateResult], error) {
	if len(inputs) == 0 {
		return hubspot.NewEnvelope[hubspot.AssociationCreateResult](), nil
	}

	defaults := make([]hubspot.AssociationInput, 0, len(inputs))
	for _, input := range inputs {
		defaults = append(defaults, hubspot.AssociationInput{From: input.From, To: input.To})
	}

	var result hubspot.Envelope[hubspot.AssociationCreateResult]

	err := c.postBatch(ctx, batchAssociationsPath(fromType, toType)+"/batch/associate/default", hubspot.NewEnvelope(defaults...), &result)
	if err != nil {
		return nil, fmt.Errorf("associating %s with %s by default: %w", fromType, toType, err)
	}

	return &result, nil
}

// BatchCreate implements hubspot.AssociationsClient.BatchCreate.
func (c *AssociationsClient) BatchCreate(ctx context.Context, fromType, toType string, inputs []hubspot.AssociationInput) (*hubspot.Envelope[hubspot.AssociationCreateResult], error) {
	if len(inputs) == 0 {
		return hubspot.NewEnvelope[hubspot.AssociationCreateResult](), nil
	}

	for i, input := range inputs {
		if len(input.Types) == 0 {
			return nil, &hubspot.ValidationError{
				Field:  fmt.Sprintf("inputs[%d].types", i),
				Reason: "use BatchAssociateDefault for unlabeled links",
				Err:    hubspot.ErrOutOfRange,
			}
		}
	}

	var result hubspot.Envelope[hubspot.AssociationCreateResult]

	err := c.postBatch(ctx, batchAssociationsPath(fromType, toType)+"/batch/create", hubspot.NewEnvelope(inputs...), &result)
	if err != nil {
		return nil, fmt.Errorf("creating %s to %s associations: %w", fromType, toType, err)
	}

	return &result, nil
}

// BatchRead implements hubspot.AssociationsClient.BatchRead.
func (c *AssociationsClient) BatchRead(ctx context.Context, fromType, toType string, ids []int64) (*hubspot.Envelope[hubspot.AssociationBatchResult], error) {
	if len(ids) == 0 {
		return hubspot.NewEnvelope[hubspot.AssociationBatchResult](), nil
	}

	inputs := make([]hubspot.AssociationReadInput, 0, len(ids))
	for _, id := range ids {
		inputs = append(inputs, hubspot.AssociationReadInput{ID: hubspot.NumericID(id)})
	}

	var result hubspot.Envelope[hubspot.AssociationBatchResult]

	err := c.postBatch(ctx, batchAssociationsPath(fromType, toType)+"/batch/read", hubspot.NewEnvelope(inputs...), &result)
	if err != nil {
		return nil, fmt.Errorf("reading %s to %s associations: %w", fromType, toType, err)
	}

	return &result, nil
}

// BatchArchive implements hubspot.AssociationsClient.BatchArchive. All labels
// between each pair are removed; Types is ignored.
func (c *AssociationsClient) BatchArchive(ctx context.Context, fromType, toType string, inputs []hubspot.AssociationArchiveInput) error {
	if len(inputs) == 0 {
		return nil
	}

	archive := make([]hubspot.AssociationArchiveInput, 0, len(inputs))
	for _, input := range inputs {
		archive = append(archive, hubspot.AssociationArchiveInput{From: input.From, To: input.To})
	}

	err := c.postBatch(ctx, batchAssociationsPath(fromType, toType)+"/batch/archive", hubspot.NewEnvelope(archive...), nil)
	if err != nil {
		return fmt.Errorf("archiving %s to %s associations: %w", fromType, toType, err)
	}

	return nil
}

// BatchArchiveLabels implements hubspot.AssociationsClient.BatchArchiveLabels.
// Only the given labels are removed; the records stay linked by any others.
func (c *AssociationsClient) BatchArchiveLabels(ctx context.Context, fromType, toType string, inputs []hubspot.AssociationArchiveInput) error {
	var labels []hubspot.AssociationInput

	for i, input := range inputs {
		if len(input.Types) == 0 {
			return &hubspot.ValidationError{Field: fmt.Sprintf("inputs[%d].types", i), Reason: "no labels to remove", Err: hubspot.ErrOutOfRange}
		}

		for _, to := range input.To {
			labels = append(labels, hubspot.AssociationInput{From: input.From, To: to, Types: input.Types})
		}
	}

	if len(labels) == 0 {
		return nil
	}

	err := c.postBatch(ctx, batchAssociationsPath(fromType, toType)+"/batch/labels/archive", hubspot.NewEnvelope(labels...), nil)
	if err != nil {
		return fmt.Errorf("archiving %s to %s association labels: %w", fromType, toType, err)
	}

	return nil
}

func (c *AssociationsClient) postBatch(ctx context.Context, path string, body, result interface{}) error {
	resp, err := c.httpClient.Post(ctx, path, body)
	if err != nil {
		return err
	}

	if result == nil {
		return nil
	}

	return http.DecodeJSON(resp, result)
}

func validateRefs(refs ...hubspot.ObjectRef) error {
	for _, ref := range refs {
		err := ref.Validate()
		if err != nil {
			return err
		}
	}

	return nil
}
