package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

func associatedObject(id string, typeIDs ...int64) map[string]interface{} {
	types := make([]interface{}, 0, len(typeIDs))
	for _, typeID := range typeIDs {
		types = append(types, map[string]interface{}{"category": "HUBSPOT_DEFINED", "typeId": typeID, "label": nil})
	}

	return map[string]interface{}{"toObjectId": id, "associationTypes": types}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestAssociationsClient_Associate(t *testing.T) {
	t.Parallel()

	t.Run("default association", func(t *testing.T) {
		t.Parallel()

		server := newRecordingServer(t, apiCall{
			Method: "PUT",
			Path:   "/crm/v4/objects/contacts/55/associations/default/companies/101",
			Response: map[string]interface{}{
				"status":  "COMPLETE",
				"results": []interface{}{},
			},
		})

		err := NewTestClient(t, server.URL).Associations().Associate(context.Background(),
			hubspot.Ref(hubspot.ObjectTypeContacts, 55),
			hubspot.Ref(hubspot.ObjectTypeCompanies, 101),
		)
		require.NoError(t, err)
		assert.Equal(t, 1, server.Served())
	})

	t.Run("labeled association", func(t *testing.T) {
		t.Parallel()

		server := newRecordingServer(t, apiCall{
			Method: "PUT",
			Path:   "/crm/v4/objects/deals/9/associations/companies/101",
			Response: map[string]interface{}{
				"fromObjectTypeId": "0-3",
				"fromObjectId":     9,
				"toObjectTypeId":   "0-2",
				"toObjectId":       101,
				"labels":           []string{"Primary"},
			},
		})

		err := NewTestClient(t, server.URL).Associations().Associate(context.Background(),
			hubspot.Ref(hubspot.ObjectTypeDeals, 9),
			hubspot.Ref(hubspot.ObjectTypeCompanies, 101),
			hubspot.Standard(hubspot.DealToCompanyPrimary),
			hubspot.Custom(512),
		)
		require.NoError(t, err)
	})

	t.Run("invalid reference is rejected locally", func(t *testing.T) {
		t.Parallel()

		server := newRecordingServer(t)

		err := NewTestClient(t, server.URL).Associations().Associate(context.Background(),
			hubspot.Ref(hubspot.ObjectTypeDeals, 0),
			hubspot.Ref(hubspot.ObjectTypeCompanies, 101),
		)
		require.ErrorIs(t, err, hubspot.ErrInvalidObjectRef)
		assert.Equal(t, 0, server.Served())
	})
}

func TestAssociationsClient_List(t *testing.T) {
	t.Parallel()

	server := newRecordingServer(t,
		apiCall{
			Method:   "GET",
			Path:     "/crm/v4/objects/companies/101/associations/contacts",
			Query:    map[string]string{"limit": "500"},
			Response: collection("", associatedObject("55", 280), associatedObject("56", 280, 2)),
		},
		apiCall{
			Method:   "GET",
			Path:     "/crm/v4/objects/companies/101/associations/contacts",
			Query:    map[string]string{"limit": "1"},
			Response: collection("55", associatedObject("55", 280)),
		},
	)

	client := NewTestClient(t, server.URL)
	from := hubspot.Ref(hubspot.ObjectTypeCompanies, 101)

	all, err := client.Associations().List(context.Background(), from, hubspot.ObjectTypeContacts, nil)
	require.NoError(t, err)
	require.Equal(t, 2, all.Len())

	second := all.Entities()[1]
	assert.Equal(t, hubspot.NumericID(56), second.ToObjectID)
	require.Len(t, second.Types, 2)
	assert.Equal(t, hubspot.Standard(hubspot.CompanyToContact), second.Types[0].Type)
	assert.Nil(t, all.Options())

	opts := hubspot.NewSearchRequestOptions()
	require.NoError(t, opts.SetLimit(1))

	page, err := client.Associations().List(context.Background(), from, hubspot.ObjectTypeContacts, opts)
	require.NoError(t, err)
	assert.Equal(t, "55", page.Options().Offset)
	assert.Empty(t, opts.Offset)
}

func TestAssociationsClient_ListAll(t *testing.T) {
	t.Parallel()

	server := newRecordingServer(t,
		apiCall{
			Method:   "GET",
			Path:     "/crm/v4/objects/tickets/3/associations/contacts",
			Query:    map[string]string{"limit": "500", "after": ""},
			Response: collection("a1", associatedObject("1", 16)),
		},
		apiCall{
			Method:   "GET",
			Path:     "/crm/v4/objects/tickets/3/associations/contacts",
			Query:    map[string]string{"limit": "500", "after": "a1"},
			Response: collection("", associatedObject("2", 16)),
		},
	)

	linked, err := NewTestClient(t, server.URL).Associations().ListAll(context.Background(),
		hubspot.Ref(hubspot.ObjectTypeTickets, 3), hubspot.ObjectTypeContacts)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	assert.Equal(t, hubspot.NumericID(2), linked[1].ToObjectID)
	assert.Equal(t, 2, server.Served())
}

func TestAssociationsClient_Remove(t *testing.T) {
	t.Parallel()

	server := newRecordingServer(t, apiCall{
		Method:     "DELETE",
		Path:       "/crm/v4/objects/contacts/55/associations/deals/9",
		StatusCode: http.StatusNoContent,
	})

	err := NewTestClient(t, server.URL).Associations().Remove(context.Background(),
		hubspot.Ref(hubspot.ObjectTypeContacts, 55),
		hubspot.Ref(hubspot.ObjectTypeDeals, 9),
	)
	require.NoError(t, err)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestAssociationsClient_Batch(t *testing.T) {
	t.Parallel()

	t.Run("associate default drops types", func(t *testing.T) {
		t.Parallel()

		server := newRecordingServer(t, apiCall{
			Method: "POST",
			Path:   "/crm/v4/associations/contacts/companies/batch/associate/default",
			CheckBody: func(t *testing.T, body map[string]interface{}) {
				items := inputs(t, body)
				if assert.Len(t, items, 1) {
					assert.Equal(t, map[string]interface{}{"id": "55"}, items[0]["from"])
					assert.Equal(t, map[string]interface{}{"id": "101"}, items[0]["to"])
					assert.NotContains(t, items[0], "types")
				}
			},
			Response: map[string]interface{}{
				"status": "COMPLETE",
				"results": []interface{}{map[string]interface{}{
					"fromObjectTypeId": "0-1",
					"fromObjectId":     55,
					"toObjectTypeId":   "0-2",
					"toObjectId":       101,
					"labels":           []string{},
				}},
			},
		})

		result, err := NewTestClient(t, server.URL).Associations().BatchAssociateDefault(context.Background(),
			hubspot.ObjectTypeContacts, hubspot.ObjectTypeCompanies,
			[]hubspot.AssociationInput{{
				From:  hubspot.RecordID(55),
				To:    hubspot.RecordID(101),
				Types: []hubspot.AssociationTypeID{hubspot.Custom(7)},
			}},
		)
		require.NoError(t, err)
		require.Equal(t, 1, result.Len())
		assert.Equal(t, hubspot.NumericID(101), result.Entities()[0].ToObjectID)
	})

	t.Run("create requires types", func(t *testing.T) {
		t.Parallel()

		server := newRecordingServer(t)

		_, err := NewTestClient(t, server.URL).Associations().BatchCreate(context.Background(),
			hubspot.ObjectTypeContacts, hubspot.ObjectTypeCompanies,
			[]hubspot.AssociationInput{{From: hubspot.RecordID(55), To: hubspot.RecordID(101)}},
		)
		require.ErrorIs(t, err, hubspot.ErrOutOfRange)
		assert.Equal(t, 0, server.Served())
	})

	t.Run("read", func(t *testing.T) {
		t.Parallel()

		server := newRecordingServer(t, apiCall{
			Method: "POST",
			Path:   "/crm/v4/associations/companies/deals/batch/read",
			CheckBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, []interface{}{map[string]interface{}{"id": "101"}}, body["inputs"])
			},
			Response: map[string]interface{}{
				"status": "COMPLETE",
				"results": []interface{}{map[string]interface{}{
					"from": map[string]interface{}{"id": "101"},
					"to":   []interface{}{associatedObject("9", 342)},
				}},
			},
		})

		result, err := NewTestClient(t, server.URL).Associations().BatchRead(context.Background(),
			hubspot.ObjectTypeCompanies, hubspot.ObjectTypeDeals, []int64{101})
		require.NoError(t, err)
		require.Equal(t, 1, result.Len())

		links := result.Entities()[0]
		assert.Equal(t, hubspot.NumericID(101), links.From.ID)
		require.Len(t, links.To, 1)
		assert.Equal(t, hubspot.NumericID(9), links.To[0].ToObjectID)
	})

	t.Run("archive labels expands each target", func(t *testing.T) {
		t.Parallel()

		server := newRecordingServer(t, apiCall{
			Method:     "POST",
			Path:       "/crm/v4/associations/deals/contacts/batch/labels/archive",
			StatusCode: http.StatusNoContent,
			CheckBody: func(t *testing.T, body map[string]interface{}) {
				items := inputs(t, body)
				if assert.Len(t, items, 2) {
					assert.Equal(t, map[string]interface{}{"id": "2"}, items[1]["to"])
					assert.Len(t, items[1]["types"], 1)
				}
			},
		})

		err := NewTestClient(t, server.URL).Associations().BatchArchiveLabels(context.Background(),
			hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts,
			[]hubspot.AssociationArchiveInput{{
				From:  hubspot.RecordID(9),
				To:    []hubspot.RecordRef{hubspot.RecordID(1), hubspot.RecordID(2)},
				Types: []hubspot.AssociationTypeID{hubspot.Custom(512)},
			}},
		)
		require.NoError(t, err)
	})

	t.Run("archive removes every label", func(t *testing.T) {
		t.Parallel()

		server := newRecordingServer(t, apiCall{
			Method:     "POST",
			Path:       "/crm/v4/associations/deals/contacts/batch/archive",
			StatusCode: http.StatusNoContent,
			CheckBody: func(t *testing.T, body map[string]interface{}) {
				items := inputs(t, body)
				if assert.Len(t, items, 1) {
					assert.NotContains(t, items[0], "types")
					assert.Len(t, items[0]["to"], 2)
				}
			},
		})

		err := NewTestClient(t, server.URL).Associations().BatchArchive(context.Background(),
			hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts,
			[]hubspot.AssociationArchiveInput{{
				From:  hubspot.RecordID(9),
				To:    []hubspot.RecordRef{hubspot.RecordID(1), hubspot.RecordID(2)},
				Types: []hubspot.AssociationTypeID{hubspot.Custom(512)},
			}},
		)
		require.NoError(t, err)
	})
}
