// Package hsclient provides the primary entry point for constructing a
// HubSpot CRM client that implements the hubspot.Client interface.
//
// It layers configuration, HTTP transport and authentication on top of the
// resource interfaces and types defined in the hubspot package. Most
// applications import hsclient to build a client, then use the returned
// hubspot.Client to reach the per-object clients: Companies(), Contacts(),
// Deals(), Tickets(), Associations() and AssociationTypes().
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
//	  "github.com/fivetwenty-io/hubspot-client/pkg/hsclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // A private app token:
//	  cli, err := hsclient.NewWithToken(ctx, "pat-na1-...")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or an OAuth app installation; access tokens are refreshed as needed:
//	  cli, err = hsclient.New(ctx, &hubspot.Config{
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	    RefreshToken: "refresh-token",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  contacts, err := cli.Contacts().RecentlyCreated(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = contacts
//	}
//
// # Endpoints
//
// BaseURL defaults to https://api.hubapi.com. Set it to point the client at a
// regional host or at a local fake such as the one served by `hubspot mock`.
package hsclient
