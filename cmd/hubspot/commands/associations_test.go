package commands

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/internal/hubspottest"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

func createRecord(t *testing.T, newCommand func() *cobra.Command, properties ...string) int64 {
	t.Helper()

	args := []string{"create"}
	for _, property := range properties {
		args = append(args, "--property", property)
	}

	stdout, _, err := execute(newCommand(), args...)
	require.NoError(t, err)

	var record hubspot.Object
	require.NoError(t, json.Unmarshal([]byte(stdout), &record))
	require.NotZero(t, record.NumericID())

	return record.NumericID()
}

func TestAssociationsCommands(t *testing.T) {
	server := hubspottest.NewServer(t)
	useServer(t, server, constants.FormatJSON)

	contactID := createRecord(t, NewContactsCommand, "email=ada@example.com")
	companyID := createRecord(t, NewCompaniesCommand, "name=Analytical Engines")

	contact := fmt.Sprintf("contacts:%d", contactID)
	company := fmt.Sprintf("companies:%d", companyID)

	stdout, _, err := execute(NewAssociationsCommand(), "create", contact, company, "--type", "1")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Associated %s with %s\n", contact, company), stdout)

	stdout, _, err = execute(NewAssociationsCommand(), "list", contact, hubspot.ObjectTypeCompanies)
	require.NoError(t, err)

	var linked []hubspot.AssociatedObject
	require.NoError(t, json.Unmarshal([]byte(stdout), &linked))
	require.Len(t, linked, 1)
	assert.Equal(t, companyID, linked[0].ToObjectID.Int64())
	assert.Contains(t, linked[0].Types, hubspot.AssociationLabel{
		Type:  hubspot.Standard(hubspot.ContactToCompanyPrimary),
		Label: "Primary",
	})

	useServer(t, server, constants.FormatTable)

	stdout, _, err = execute(NewAssociationsCommand(), "list", company, hubspot.ObjectTypeContacts, "--all")
	require.NoError(t, err)
	assert.Contains(t, stdout, fmt.Sprint(contactID))
	assert.Contains(t, stdout, "Primary")

	stdout, _, err = execute(NewAssociationsCommand(), "delete", company, contact)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Removed associations between")

	stdout, _, err = execute(NewAssociationsCommand(), "list", contact, hubspot.ObjectTypeCompanies)
	require.NoError(t, err)
	assert.Equal(t, "No associated companies found\n", stdout)

	_, _, err = execute(NewAssociationsCommand(), "create", "contacts", company)
	require.ErrorIs(t, err, hubspot.ErrInvalidObjectRef)
}

func TestLabelsCommands(t *testing.T) {
	server := hubspottest.NewServer(t)
	useServer(t, server, constants.FormatJSON)

	stdout, _, err := execute(NewLabelsCommand(), "create", hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts,
		"--label", "Decision maker", "--inverse-label", "Decided on")
	require.NoError(t, err)

	var created []hubspot.AssociationLabel
	require.NoError(t, json.Unmarshal([]byte(stdout), &created))
	require.Len(t, created, 2)
	assert.Equal(t, "Decision maker", created[0].Label)
	assert.Equal(t, "Decided on", created[1].Label)
	assert.Equal(t, hubspot.UserDefined, created[0].Type.Category())

	typeID := fmt.Sprint(created[0].Type.ID())

	stdout, _, err = execute(NewLabelsCommand(), "update", hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts, typeID,
		"--label", "Economic buyer")
	require.NoError(t, err)
	assert.Equal(t, "Updated label "+typeID+"\n", stdout)

	useServer(t, server, constants.FormatTable)

	stdout, _, err = execute(NewLabelsCommand(), "list", hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Economic buyer")
	assert.Contains(t, stdout, string(hubspot.HubSpotDefined))

	_, _, err = execute(NewLabelsCommand(), "delete", hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts, "abc")
	require.ErrorIs(t, err, hubspot.ErrNumericIDRequired)

	stdout, _, err = execute(NewLabelsCommand(), "delete", hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts, typeID)
	require.NoError(t, err)
	assert.Equal(t, "Deleted label "+typeID+"\n", stdout)

	stdout, _, err = execute(NewLabelsCommand(), "list", hubspot.ObjectTypeDeals, hubspot.ObjectTypeContacts)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Economic buyer")
}
