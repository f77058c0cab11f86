package hubspottest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db))

	store := NewStore(db)
	require.NoError(t, store.SeedAssociationTypes(context.Background()))

	return store
}

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var apiErr *apiError

	require.True(t, errors.As(err, &apiErr), "expected an API error, got %v", err)

	return apiErr.status
}

func TestMigrateIsRepeatable(t *testing.T) {
	t.Parallel()

	db, err := OpenDB(":memory:")
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, Migrate(context.Background(), db))
}

func TestStore_CreateSetsSystemProperties(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	record, err := store.Create(ctx, hubspot.ObjectTypeCompanies, hubspot.Properties{
		"name":         "Acme",
		"hs_object_id": "999",
	})
	require.NoError(t, err)

	assert.Equal(t, strconv.FormatInt(record.ID, 10), record.Properties[propertyObjectID])
	assert.Equal(t, formatTime(record.CreatedAt), record.Properties[propertyCreateDate])
	assert.Equal(t, record.Properties[propertyCreateDate], record.Properties[propertyLastModified])
	assert.Equal(t, "Acme", record.Properties["name"])

	_, err = store.Create(ctx, "widgets", hubspot.Properties{})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestStore_ContactEmailIsUnique(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.Create(ctx, hubspot.ObjectTypeContacts, hubspot.Properties{"email": "ada@example.com"})
	require.NoError(t, err)

	_, err = store.Create(ctx, hubspot.ObjectTypeContacts, hubspot.Properties{"email": "ADA@example.com"})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))
	assert.Equal(t, "Contact already exists. Existing ID: "+strconv.FormatInt(first.ID, 10), err.Error())

	require.NoError(t, store.Archive(ctx, hubspot.ObjectTypeContacts, first.ID))

	second, err := store.Create(ctx, hubspot.ObjectTypeContacts, hubspot.Properties{"email": "ada@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestStore_UpdateAndHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	record, err := store.Create(ctx, hubspot.ObjectTypeDeals, hubspot.Properties{"dealname": "Pilot", "amount": "100"})
	require.NoError(t, err)

	updated, err := store.Update(ctx, hubspot.ObjectTypeDeals, record.ID, hubspot.Properties{"amount": "250", "dealname": ""})
	require.NoError(t, err)
	assert.Equal(t, "250", updated.Properties["amount"])
	assert.NotContains(t, updated.Properties, "dealname")

	history, err := store.History(ctx, record.ID, []string{"amount"})
	require.NoError(t, err)

	values := make([]string, 0, len(history["amount"]))
	for _, version := range history["amount"] {
		values = append(values, version.Value)
	}

	if diff := cmp.Diff([]string{"250", "100"}, values); diff != "" {
		t.Errorf("amount history mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ArchivedRecordsAreSeparate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	record, err := store.Create(ctx, hubspot.ObjectTypeTickets, hubspot.Properties{"subject": "Broken"})
	require.NoError(t, err)
	require.NoError(t, store.Archive(ctx, hubspot.ObjectTypeTickets, record.ID))
	require.NoError(t, store.Archive(ctx, hubspot.ObjectTypeTickets, record.ID))

	_, err = store.Get(ctx, hubspot.ObjectTypeTickets, record.ID, false)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	archived, err := store.Get(ctx, hubspot.ObjectTypeTickets, record.ID, true)
	require.NoError(t, err)
	assert.True(t, archived.Archived)
	assert.False(t, archived.ArchivedAt.IsZero())
}

func TestStore_LookupByPropertyAmbiguity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	for range 2 {
		record, err := store.Create(ctx, hubspot.ObjectTypeContacts, hubspot.Properties{"email": "gone@example.com"})
		require.NoError(t, err)
		require.NoError(t, store.Archive(ctx, hubspot.ObjectTypeContacts, record.ID))
	}

	_, err := store.Lookup(ctx, hubspot.ObjectTypeContacts, "gone@example.com", "email", true)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	_, err = store.Lookup(ctx, hubspot.ObjectTypeContacts, "gone@example.com", "email", false)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = store.Lookup(ctx, hubspot.ObjectTypeContacts, "not-a-number", "", false)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestStore_ListPagesByID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	var ids []int64

	for i := range 5 {
		record, err := store.Create(ctx, hubspot.ObjectTypeCompanies, hubspot.Properties{"name": "Company " + strconv.Itoa(i)})
		require.NoError(t, err)

		ids = append(ids, record.ID)
	}

	page, next, err := store.List(ctx, hubspot.ObjectTypeCompanies, 0, 2, false)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], next)

	page, next, err = store.List(ctx, hubspot.ObjectTypeCompanies, next, 10, false)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Zero(t, next)
}

//nolint:funlen // Table of every operator
func TestStore_SearchOperators(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	for _, props := range []hubspot.Properties{
		{"dealname": "Alpha renewal", "amount": "100", "dealstage": "closedwon"},
		{"dealname": "Beta expansion", "amount": "2500", "dealstage": "contractsent"},
		{"dealname": "Gamma pilot", "dealstage": "closedlost"},
	} {
		_, err := store.Create(ctx, hubspot.ObjectTypeDeals, props)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter searchFilter
		want   []string
	}{
		{"EQ ignores case", searchFilter{PropertyName: "dealstage", Operator: hubspot.OperatorEQ, Value: "CLOSEDWON"}, []string{"Alpha renewal"}},
		{"NEQ includes missing", searchFilter{PropertyName: "amount", Operator: hubspot.OperatorNEQ, Value: "100"}, []string{"Beta expansion", "Gamma pilot"}},
		{"LT is numeric", searchFilter{PropertyName: "amount", Operator: hubspot.OperatorLT, Value: "1000"}, []string{"Alpha renewal"}},
		{"LTE", searchFilter{PropertyName: "amount", Operator: hubspot.OperatorLTE, Value: "2500"}, []string{"Alpha renewal", "Beta expansion"}},
		{"GT", searchFilter{PropertyName: "amount", Operator: hubspot.OperatorGT, Value: "100"}, []string{"Beta expansion"}},
		{"GTE", searchFilter{PropertyName: "amount", Operator: hubspot.OperatorGTE, Value: "100"}, []string{"Alpha renewal", "Beta expansion"}},
		{"BETWEEN", searchFilter{PropertyName: "amount", Operator: hubspot.OperatorBetween, Value: "50", HighValue: "150"}, []string{"Alpha renewal"}},
		{"IN", searchFilter{PropertyName: "dealstage", Operator: hubspot.OperatorIn, Values: []string{"closedwon", "closedlost"}}, []string{"Alpha renewal", "Gamma pilot"}},
		{"NOT_IN", searchFilter{PropertyName: "dealstage", Operator: hubspot.OperatorNotIn, Values: []string{"closedwon", "closedlost"}}, []string{"Beta expansion"}},
		{"HAS_PROPERTY", searchFilter{PropertyName: "amount", Operator: hubspot.OperatorHasProperty}, []string{"Alpha renewal", "Beta expansion"}},
		{"NOT_HAS_PROPERTY", searchFilter{PropertyName: "amount", Operator: hubspot.OperatorNotHasProperty}, []string{"Gamma pilot"}},
		{"CONTAINS_TOKEN", searchFilter{PropertyName: "dealname", Operator: hubspot.OperatorContainsToken, Value: "pilot"}, []string{"Gamma pilot"}},
		{"CONTAINS_TOKEN wildcard", searchFilter{PropertyName: "dealname", Operator: hubspot.OperatorContainsToken, Value: "*pan*"}, []string{"Beta expansion"}},
		{"NOT_CONTAINS_TOKEN", searchFilter{PropertyName: "dealname", Operator: hubspot.OperatorNotContainsToken, Value: "pilot"}, []string{"Alpha renewal", "Beta expansion"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &SearchRequest{
				FilterGroups: []searchGroup{{Filters: []searchFilter{tt.filter}}},
				Sorts:        []hubspot.Sort{{PropertyName: "dealname", Direction: hubspot.Ascending}},
			}

			records, total, next, err := store.Search(ctx, hubspot.ObjectTypeDeals, req)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), total)
			assert.Empty(t, next)

			names := make([]string, 0, len(records))
			for _, record := range records {
				names = append(names, record.Properties["dealname"])
			}

			assert.Equal(t, tt.want, names)
		})
	}
}

func TestStore_SearchGroupsQueryAndPaging(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	for _, name := range []string{"Ada", "Grace", "Linus", "Ken"} {
		_, err := store.Create(ctx, hubspot.ObjectTypeContacts, hubspot.Properties{"firstname": name})
		require.NoError(t, err)
	}

	req := &SearchRequest{
		FilterGroups: []searchGroup{
			{Filters: []searchFilter{{PropertyName: "firstname", Operator: hubspot.OperatorEQ, Value: "Ada"}}},
			{Filters: []searchFilter{{PropertyName: "firstname", Operator: hubspot.OperatorEQ, Value: "Ken"}}},
		},
		Sorts: []hubspot.Sort{{PropertyName: "firstname", Direction: hubspot.Descending}},
		Limit: 1,
	}

	records, total, next, err := store.Search(ctx, hubspot.ObjectTypeContacts, req)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "1", next)
	assert.Equal(t, "Ken", records[0].Properties["firstname"])

	req.After = next

	records, _, next, err = store.Search(ctx, hubspot.ObjectTypeContacts, req)
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Equal(t, "Ada", records[0].Properties["firstname"])

	records, total, _, err = store.Search(ctx, hubspot.ObjectTypeContacts, &SearchRequest{Query: "inu"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Linus", records[0].Properties["firstname"])
}

func TestStore_SearchRejectsOversizedRequests(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	filter := searchFilter{PropertyName: "name", Operator: hubspot.OperatorHasProperty}

	for name, req := range map[string]*SearchRequest{
		"groups":   {FilterGroups: make([]searchGroup, 4)},
		"filters":  {FilterGroups: []searchGroup{{Filters: []searchFilter{filter, filter, filter, filter}}}},
		"limit":    {Limit: 101},
		"operator": {FilterGroups: []searchGroup{{Filters: []searchFilter{{PropertyName: "name", Operator: "LIKE"}}}}},
	} {
		_, _, _, err := store.Search(context.Background(), hubspot.ObjectTypeCompanies, req)
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err), name)
	}
}

func TestStore_AssociationsRunBothWays(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	contact, err := store.Create(ctx, hubspot.ObjectTypeContacts, hubspot.Properties{"email": "a@example.com"})
	require.NoError(t, err)

	company, err := store.Create(ctx, hubspot.ObjectTypeCompanies, hubspot.Properties{"name": "Acme"})
	require.NoError(t, err)

	applied, err := store.Associate(ctx, hubspot.ObjectTypeContacts, contact.ID, hubspot.ObjectTypeCompanies, company.ID,
		int64(hubspot.ContactToCompanyPrimary))
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, int64(hubspot.ContactToCompany), applied[0].ID)
	assert.Equal(t, "Primary", applied[1].Label)

	linked, _, err := store.Associations(ctx, company.ID, hubspot.ObjectTypeContacts, 0, 10)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, contact.ID, linked[0].ToID)

	typeIDs := []int64{linked[0].Types[0].ID, linked[0].Types[1].ID}
	assert.Equal(t, []int64{int64(hubspot.CompanyToContactPrimary), int64(hubspot.CompanyToContact)}, typeIDs)

	require.NoError(t, store.RemoveAssociation(ctx, company.ID, contact.ID, int64(hubspot.CompanyToContactPrimary)))

	linked, _, err = store.Associations(ctx, contact.ID, hubspot.ObjectTypeCompanies, 0, 10)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	require.Len(t, linked[0].Types, 1)
	assert.Equal(t, int64(hubspot.ContactToCompany), linked[0].Types[0].ID)

	require.NoError(t, store.Archive(ctx, hubspot.ObjectTypeCompanies, company.ID))

	linked, _, err = store.Associations(ctx, contact.ID, hubspot.ObjectTypeCompanies, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestStore_Labels(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	pair, err := store.CreateLabel(ctx, hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts,
		hubspot.AssociationTypeDefinition{Label: "Decision maker", Name: "decision_maker", InverseLabel: "Decided on"})
	require.NoError(t, err)
	require.Len(t, pair, 2)
	assert.Equal(t, pair[1].ID, pair[0].InverseID)
	assert.Equal(t, hubspot.ObjectTypeContacts, pair[1].FromType)

	_, err = store.CreateLabel(ctx, hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts,
		hubspot.AssociationTypeDefinition{Label: "Again", Name: "decision_maker"})
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	symmetric, err := store.CreateLabel(ctx, hubspot.ObjectTypeCompanies, hubspot.ObjectTypeCompanies,
		hubspot.AssociationTypeDefinition{Label: "Sister company", Name: "sister_company"})
	require.NoError(t, err)
	require.Len(t, symmetric, 1)
	assert.Equal(t, symmetric[0].ID, symmetric[0].InverseID)

	require.NoError(t, store.UpdateLabel(ctx, hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts,
		hubspot.AssociationTypeUpdate{TypeID: pair[0].ID, Label: "Champion", InverseLabel: "Championed"}))

	labels, err := store.Labels(ctx, hubspot.ObjectTypeContacts, hubspot.ObjectTypeDeals)
	require.NoError(t, err)
	assert.Equal(t, "Championed", labels[len(labels)-1].Label)

	err = store.DeleteLabel(ctx, hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts, int64(hubspot.DealToContact))
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	require.NoError(t, store.DeleteLabel(ctx, hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts, pair[0].ID))

	labels, err = store.Labels(ctx, hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, int64(hubspot.DealToContact), labels[0].ID)
}

func TestStore_SeedIsDeterministic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	names := func(seed int64) []string {
		store := newTestStore(t)

		result, err := store.Seed(ctx, 3, seed)
		require.NoError(t, err)
		require.Len(t, result.Contacts, 6)
		require.Len(t, result.Tickets, 3)

		records, _, err := store.List(ctx, hubspot.ObjectTypeCompanies, 0, 10, false)
		require.NoError(t, err)

		out := make([]string, 0, len(records))
		for _, record := range records {
			out = append(out, record.Properties["name"])
		}

		linked, _, err := store.Associations(ctx, result.Companies[0], hubspot.ObjectTypeContacts, 0, 10)
		require.NoError(t, err)
		assert.Len(t, linked, 2)

		return out
	}

	if diff := cmp.Diff(names(42), names(42)); diff != "" {
		t.Errorf("seeded companies differ (-first +second):\n%s", diff)
	}
}
