package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/hubspot-client/internal/http"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// AssociationTypesClient implements hubspot.AssociationTypesClient.
type AssociationTypesClient struct {
	httpClient *http.Client
}

// NewAssociationTypesClient creates a new association labels client.
func NewAssociationTypesClient(httpClient *http.Client) *AssociationTypesClient {
	return &AssociationTypesClient{
		httpClient: httpClient,
	}
}

type labelsResponse struct {
	Results []hubspot.AssociationLabel `json:"results"`
}

func labelsPath(fromType, toType string) string {
	return batchAssociationsPath(fromType, toType) + "/labels"
}

// List implements hubspot.AssociationTypesClient.List.
func (c *AssociationTypesClient) List(ctx context.Context, fromType, toType string) ([]hubspot.AssociationLabel, error) {
	resp, err := c.httpClient.Get(ctx, labelsPath(fromType, toType), nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s to %s association labels: %w", fromType, toType, err)
	}

	var labels labelsResponse

	err = http.DecodeJSON(resp, &labels)
	if err != nil {
		return nil, fmt.Errorf("parsing association labels response: %w", err)
	}

	return labels.Results, nil
}

// Create implements hubspot.AssociationTypesClient.Create. HubSpot answers
// with one label per direction; a symmetric label yields a pair of equal types.
func (c *AssociationTypesClient) Create(ctx context.Context, fromType, toType string, definition hubspot.AssociationTypeDefinition) (hubspot.AssociationTypePair, error) {
	if strings.TrimSpace(definition.Label) == "" {
		return hubspot.AssociationTypePair{}, &hubspot.ValidationError{Field: "label", Reason: "must not be empty", Err: hubspot.ErrValidation}
	}

	if definition.Name == "" {
		definition.Name = labelName(definition.Label)
	}

	resp, err := c.httpClient.Post(ctx, labelsPath(fromType, toType), definition)
	if err != nil {
		return hubspot.AssociationTypePair{}, fmt.Errorf("creating association label %q: %w", definition.Label, err)
	}

	var labels labelsResponse

	err = http.DecodeJSON(resp, &labels)
	if err != nil {
		return hubspot.AssociationTypePair{}, fmt.Errorf("parsing association label response: %w", err)
	}

	return hubspot.NewAssociationTypePair(labels.Results)
}

// Update implements hubspot.AssociationTypesClient.Update.
func (c *AssociationTypesClient) Update(ctx context.Context, fromType, toType string, update hubspot.AssociationTypeUpdate) error {
	if update.TypeID <= 0 {
		return &hubspot.ValidationError{Field: "associationTypeId", Err: hubspot.ErrMissingIdentifier}
	}

	_, err := c.httpClient.Put(ctx, labelsPath(fromType, toType), update)
	if err != nil {
		return fmt.Errorf("updating association label %d: %w", update.TypeID, err)
	}

	return nil
}

// Delete implements hubspot.AssociationTypesClient.Delete.
func (c *AssociationTypesClient) Delete(ctx context.Context, fromType, toType string, typeID int64) error {
	if typeID <= 0 {
		return &hubspot.ValidationError{Field: "associationTypeId", Err: hubspot.ErrMissingIdentifier}
	}

	_, err := c.httpClient.Delete(ctx, labelsPath(fromType, toType)+"/"+strconv.FormatInt(typeID, 10))
	if err != nil {
		return fmt.Errorf("deleting association label %d: %w", typeID, err)
	}

	return nil
}

// labelName derives the internal name HubSpot requires from a display label.
func labelName(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "_")
}
