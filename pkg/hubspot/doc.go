// Package hubspot provides types, interfaces, and helpers for working with
// the HubSpot CRM API.
//
// # Overview
//
// The hubspot package defines the record types (Company, Contact, Deal,
// Ticket), the search model, the batch envelope, and the interfaces of the
// per-object clients. A concrete implementation is provided by the hsclient
// package, which wires configuration, transport, and authentication.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/hubspot-client/pkg/hsclient"
//	  "github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := hsclient.New(ctx, &hubspot.Config{AccessToken: "pat-..."})
//	  if err != nil { log.Fatal(err) }
//
//	  company, err := cli.Companies().Create(ctx, &hubspot.Company{Name: "Acme", Domain: "acme.com"})
//	  if err != nil { log.Fatal(err) }
//	  _ = company
//	}
//
// # Records and properties
//
// Records embed Object and declare properties with struct tags:
//
//	type Company struct {
//	  hubspot.Object
//	  Name string `hubspot:"name"`
//	}
//
// Declared fields travel in the "properties" bag of singular calls. Zero
// values are not sent; properties the record does not declare are kept in
// Object.Extra. Identifiers are numeric record ids or, together with
// Object.IDProperty, the value of a unique property such as a contact email.
//
// # Search and pagination
//
// SearchRequestOptions holds up to three filter groups of up to three
// filters each; limits are validated when set. Each result carries a copy
// of the options; calling Offset on the result advances it, and passing it
// back resumes after the current page:
//
//	opts := hubspot.NewSearchRequestOptions()
//	for {
//	  page, err := cli.Companies().Search(ctx, opts)
//	  if err != nil { return err }
//	  // use page.Entities()
//	  if page.Offset() == "" { break }
//	  opts = page.Options()
//	}
//
// NewSearchIterator and SearchAll wrap the same loop.
//
// # Batches
//
// Batch calls return an Envelope whose Errors hold per-record failures; a
// call can succeed overall while some records fail. BatchCreateOrUpdate
// sends records with an id to the update endpoint and the rest to the create
// endpoint, in that order, and merges both responses. The two calls are not
// atomic.
//
// # Errors
//
// Local validation failures wrap ErrValidation. Unsuccessful responses are
// returned as *APIError; IsNotFound, IsConflict, and IsRateLimited classify
// them.
package hubspot
