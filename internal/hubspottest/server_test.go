package hubspottest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/hubspot-client/internal/client"
	"github.com/fivetwenty-io/hubspot-client/internal/hubspottest"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

func newClient(t *testing.T, server *hubspottest.TestServer) *client.Client {
	t.Helper()

	c, err := client.New(context.Background(), &hubspot.Config{BaseURL: server.URL, AccessToken: server.Token})
	require.NoError(t, err)

	return c
}

func TestServer_RejectsUnknownToken(t *testing.T) {
	t.Parallel()

	server := hubspottest.NewServer(t)

	c, err := client.New(context.Background(), &hubspot.Config{BaseURL: server.URL, AccessToken: "wrong"})
	require.NoError(t, err)

	_, err = c.Companies().List(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, hubspot.IsUnauthorized(err))
}

func TestServer_ContactLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := hubspottest.NewServer(t)
	contacts := newClient(t, server).Contacts()

	created, err := contacts.Create(ctx, &hubspot.Contact{Email: "ada@example.com", FirstName: "Ada"})
	require.NoError(t, err)
	require.NotZero(t, created.NumericID())
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.ID.String(), created.Property("hs_object_id"))

	created.LastName = "Lovelace"
	updated, err := contacts.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.Equal(t, "Ada", updated.FirstName)

	byEmail, err := contacts.GetByUniqueID(ctx, hubspot.NamedID("ada@example.com"), nil)
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.NumericID(), byEmail.NumericID())

	require.NoError(t, contacts.Delete(ctx, created))

	gone, err := contacts.GetByUniqueID(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, gone)

	archived, err := contacts.GetByUniqueID(ctx, created.ID, &hubspot.GetOptions{Archived: true})
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.True(t, archived.Archived)

	recreated, err := contacts.Create(ctx, &hubspot.Contact{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, created.NumericID(), recreated.NumericID())
}

func TestServer_PropertyHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := hubspottest.NewServer(t)
	deals := newClient(t, server).Deals()

	amount := 100.0
	deal, err := deals.Create(ctx, &hubspot.Deal{Name: "Pilot", Amount: &amount})
	require.NoError(t, err)

	amount = 300
	_, err = deals.Update(ctx, &hubspot.Deal{Object: hubspot.Object{ID: deal.ID}, Amount: &amount})
	require.NoError(t, err)

	read, err := deals.GetByUniqueID(ctx, deal.ID, &hubspot.GetOptions{
		Properties:            []string{"amount"},
		PropertiesWithHistory: []string{"amount"},
	})
	require.NoError(t, err)
	require.NotNil(t, read)
	require.NotNil(t, read.Amount)
	assert.InDelta(t, 300.0, *read.Amount, 0.001)
	assert.Empty(t, read.Name)
	require.Len(t, read.History["amount"], 2)
	assert.Equal(t, "100", read.History["amount"][1].Value)
}

func TestServer_CreateOrUpdateFollowsConflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := hubspottest.NewServer(t)
	contacts := newClient(t, server).Contacts()

	original, err := contacts.Create(ctx, &hubspot.Contact{Email: "grace@example.com", FirstName: "Grace"})
	require.NoError(t, err)

	merged, err := contacts.CreateOrUpdate(ctx, &hubspot.Contact{Email: "grace@example.com", JobTitle: "Rear Admiral"})
	require.NoError(t, err)
	assert.Equal(t, original.NumericID(), merged.NumericID())
	assert.Equal(t, "Grace", merged.FirstName)
	assert.Equal(t, "Rear Admiral", merged.JobTitle)
	assert.Equal(t, 1, server.Calls(http.MethodPatch, "/crm/v3/objects/contacts/"))
}

func TestServer_SearchAllFollowsPages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := hubspottest.NewServer(t)
	companies := newClient(t, server).Companies()

	for i := range 5 {
		_, err := companies.Create(ctx, &hubspot.Company{Name: "Company " + strconv.Itoa(i)})
		require.NoError(t, err)
	}

	opts := hubspot.NewSearchRequestOptions()
	require.NoError(t, opts.SetLimit(2))
	opts.SetSort("name", hubspot.Descending)

	all, err := companies.SearchAll(ctx, opts)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "Company 4", all[0].Name)
	assert.Equal(t, "Company 0", all[4].Name)
	assert.Equal(t, 3, server.Calls(http.MethodPost, "/crm/v3/objects/companies/search"))

	recent, err := companies.RecentlyCreated(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, recent.Total)

	require.NoError(t, companies.DeleteByID(ctx, all[0].NumericID()))

	recent, err = companies.RecentlyCreated(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, recent.Total)
}

func TestServer_SearchValidation(t *testing.T) {
	t.Parallel()

	server := hubspottest.NewServer(t)

	body, err := json.Marshal(map[string]interface{}{"filterGroups": []interface{}{}, "limit": 101})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		server.URL+"/crm/v3/objects/deals/search", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+server.Token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Hubspot-Correlation-Id"))

	var doc map[string]interface{}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, hubspot.CategoryValidationError, doc["category"])
	assert.Equal(t, resp.Header.Get("X-Hubspot-Correlation-Id"), doc["correlationId"])
}

func TestServer_ListFollowsIDCursor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := hubspottest.NewServer(t)
	tickets := newClient(t, server).Tickets()

	for _, subject := range []string{"Login fails", "Invoice wrong", "Feature request"} {
		_, err := tickets.Create(ctx, &hubspot.Ticket{Subject: subject, Pipeline: "0", Stage: "1"})
		require.NoError(t, err)
	}

	opts := hubspot.NewSearchRequestOptions()
	require.NoError(t, opts.SetLimit(2))

	page, err := tickets.List(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, 2, page.Len())
	require.True(t, page.MoreResultsAvailable())

	next, err := tickets.List(ctx, page.Options())
	require.NoError(t, err)
	require.Equal(t, 1, next.Len())
	assert.Equal(t, "Feature request", next.Entities()[0].Subject)
	assert.False(t, next.MoreResultsAvailable())
}

//nolint:funlen // End-to-end batch scenario
func TestServer_BatchCreateOrUpdateSplitsCalls(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := hubspottest.NewServer(t)
	companies := newClient(t, server).Companies()

	existing, err := companies.Create(ctx, &hubspot.Company{Name: "Existing"})
	require.NoError(t, err)

	existing.Industry = "RETAIL"

	result, err := companies.BatchCreateOrUpdate(ctx, []*hubspot.Company{
		{Name: "New A"},
		existing,
		{Name: "New B"},
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.Len())
	assert.False(t, result.HasErrors())
	assert.Equal(t, "update: COMPLETE, create: COMPLETE", result.StatusSummary())
	assert.Equal(t, 1, server.Calls(http.MethodPost, "/crm/v3/objects/companies/batch/update"))
	assert.Equal(t, 1, server.Calls(http.MethodPost, "/crm/v3/objects/companies/batch/create"))

	first := result.Entities()[0]
	assert.Equal(t, existing.NumericID(), first.NumericID())
	assert.Equal(t, "RETAIL", first.Industry)

	byName := func(c *hubspot.Company) string { return c.Name }
	ordered := hubspot.ReorderByInput([]*hubspot.Company{{Name: "New A"}, existing, {Name: "New B"}}, result.Entities(), byName)
	require.Len(t, ordered, 3)
	assert.Equal(t, "New A", ordered[0].Name)
	assert.Equal(t, existing.NumericID(), ordered[1].NumericID())

	read, err := companies.BatchRead(ctx, []hubspot.Identifier{existing.ID, hubspot.NumericID(99999)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, read.Len())
	require.True(t, read.HasErrors())
	assert.Equal(t, []string{"99999"}, read.Errors[0].IDs())

	ids := hubspot.Identifiers(result)
	numeric := make([]int64, 0, len(ids))

	for _, id := range ids {
		numeric = append(numeric, id.Int64())
	}

	archived, err := companies.BatchArchive(ctx, numeric)
	require.NoError(t, err)
	assert.Equal(t, hubspot.BatchStatusArchived, archived.Status)

	left, err := companies.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, left.Len())
}

func TestServer_BatchUpsertMatchesOnEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := hubspottest.NewServer(t)
	contacts := newClient(t, server).Contacts()

	existing, err := contacts.Create(ctx, &hubspot.Contact{Email: "linus@example.com", FirstName: "Linus"})
	require.NoError(t, err)

	result, err := contacts.BatchUpsert(ctx, []*hubspot.Contact{
		{Email: "linus@example.com", City: "Portland"},
		{Email: "ken@example.com", FirstName: "Ken"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, 2, result.Len())

	byEmail := map[string]*hubspot.Contact{}
	for _, contact := range result.Entities() {
		byEmail[contact.Email] = contact
	}

	assert.Equal(t, existing.NumericID(), byEmail["linus@example.com"].NumericID())
	assert.Equal(t, "Portland", byEmail["linus@example.com"].City)
	assert.Equal(t, "Ken", byEmail["ken@example.com"].FirstName)
}

//nolint:funlen // End-to-end association scenario
func TestServer_Associations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := hubspottest.NewServer(t)
	c := newClient(t, server)

	contact, err := c.Contacts().Create(ctx, &hubspot.Contact{Email: "buyer@example.com"})
	require.NoError(t, err)

	deal, err := c.Deals().Create(ctx, &hubspot.Deal{Name: "Big deal"})
	require.NoError(t, err)

	company := &hubspot.Company{Name: "Acme"}
	company.Associations = []hubspot.ObjectAssociation{{
		To:    contact.NumericID(),
		Types: []hubspot.AssociationTypeID{hubspot.Standard(hubspot.CompanyToContactPrimary)},
	}}

	company, err = c.Companies().Create(ctx, company)
	require.NoError(t, err)

	contactRef := hubspot.Ref(hubspot.ObjectTypeContacts, contact.NumericID())
	dealRef := hubspot.Ref(hubspot.ObjectTypeDeals, deal.NumericID())
	companyRef := hubspot.Ref(hubspot.ObjectTypeCompanies, company.NumericID())

	linked, err := c.Associations().ListAll(ctx, contactRef, hubspot.ObjectTypeCompanies)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, company.ID, linked[0].ToObjectID)
	require.Len(t, linked[0].Types, 2)
	assert.Equal(t, hubspot.Standard(hubspot.ContactToCompanyPrimary), linked[0].Types[0].Type)
	assert.Equal(t, "Primary", linked[0].Types[0].Label)

	pair, err := c.AssociationTypes().Create(ctx, hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts,
		hubspot.AssociationTypeDefinition{Label: "Decision maker", InverseLabel: "Decided on"})
	require.NoError(t, err)
	assert.False(t, pair.Symmetric())
	assert.Less(t, pair.Forward().Type.ID(), pair.Inverse().Type.ID())

	require.NoError(t, c.Associations().Associate(ctx, dealRef, contactRef, pair.Forward().Type))
	require.NoError(t, c.Associations().Associate(ctx, dealRef, companyRef))

	fromContact, err := c.Associations().List(ctx, contactRef, hubspot.ObjectTypeDeals, nil)
	require.NoError(t, err)
	require.Equal(t, 1, fromContact.Len())

	labels := fromContact.Entities()[0].Types
	require.Len(t, labels, 2)
	assert.Equal(t, hubspot.Standard(hubspot.ContactToDeal), labels[0].Type)
	assert.Equal(t, pair.Inverse().Type, labels[1].Type)
	assert.Equal(t, "Decided on", labels[1].Label)

	read, err := c.Associations().BatchRead(ctx, hubspot.ObjectTypeDeals, hubspot.ObjectTypeCompanies, []int64{deal.NumericID()})
	require.NoError(t, err)
	require.Equal(t, 1, read.Len())
	require.Len(t, read.Entities()[0].To, 1)
	assert.Equal(t, hubspot.Standard(hubspot.DealToCompany), read.Entities()[0].To[0].Types[0].Type)

	require.NoError(t, c.Associations().Remove(ctx, dealRef, contactRef))

	remaining, err := c.Associations().ListAll(ctx, contactRef, hubspot.ObjectTypeDeals)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	require.NoError(t, c.AssociationTypes().Delete(ctx, hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts, pair.Forward().Type.ID()))

	defined, err := c.AssociationTypes().List(ctx, hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts)
	require.NoError(t, err)
	require.Len(t, defined, 1)
	assert.Equal(t, hubspot.Standard(hubspot.DealToContact), defined[0].Type)
}

func TestServer_BatchAssociations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := hubspottest.NewServer(t)
	c := newClient(t, server)

	result, err := server.Store().Seed(ctx, 1, 7)
	require.NoError(t, err)

	ticket, company := result.Tickets[0], result.Companies[0]

	created, err := c.Associations().BatchAssociateDefault(ctx, hubspot.ObjectTypeTickets, hubspot.ObjectTypeContacts,
		[]hubspot.AssociationInput{{From: hubspot.RecordID(ticket), To: hubspot.RecordID(result.Contacts[0])}})
	require.NoError(t, err)
	require.Equal(t, 1, created.Len())
	assert.Equal(t, "0-5", created.Entities()[0].FromObjectTypeID)

	err = c.Associations().BatchArchive(ctx, hubspot.ObjectTypeTickets, hubspot.ObjectTypeCompanies,
		[]hubspot.AssociationArchiveInput{{From: hubspot.RecordID(ticket), To: []hubspot.RecordRef{hubspot.RecordID(company)}}})
	require.NoError(t, err)

	linked, err := c.Associations().ListAll(ctx, hubspot.Ref(hubspot.ObjectTypeCompanies, company), hubspot.ObjectTypeTickets)
	require.NoError(t, err)
	assert.Empty(t, linked)
}
