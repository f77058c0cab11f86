package client

import (
	"github.com/fivetwenty-io/hubspot-client/internal/http"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// ContactsIDProperty is the unique property named contact identifiers resolve against.
const ContactsIDProperty = "email"

// NewCompaniesClient creates the companies client.
func NewCompaniesClient(httpClient *http.Client) *ObjectsClient[*hubspot.Company] {
	return NewObjectsClient[*hubspot.Company](httpClient, hubspot.ObjectTypeCompanies, "company", "")
}

// NewContactsClient creates the contacts client. Named identifiers are emails.
func NewContactsClient(httpClient *http.Client) *ObjectsClient[*hubspot.Contact] {
	return NewObjectsClient[*hubspot.Contact](httpClient, hubspot.ObjectTypeContacts, "contact", ContactsIDProperty)
}

// NewDealsClient creates the deals client.
func NewDealsClient(httpClient *http.Client) *ObjectsClient[*hubspot.Deal] {
	return NewObjectsClient[*hubspot.Deal](httpClient, hubspot.ObjectTypeDeals, "deal", "")
}

// NewTicketsClient creates the tickets client.
func NewTicketsClient(httpClient *http.Client) *ObjectsClient[*hubspot.Ticket] {
	return NewObjectsClient[*hubspot.Ticket](httpClient, hubspot.ObjectTypeTickets, "ticket", "")
}
