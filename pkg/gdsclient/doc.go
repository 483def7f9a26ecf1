// Package gdsclient provides the primary entry point for constructing a
// GOV.UK API client that implements the gdsapi.Client interface.
//
// It layers service discovery, per-service credentials and request
// instrumentation on top of the types defined in the gdsapi package. Most
// applications import gdsclient to build a client, then use the returned
// gdsapi.Client to reach a service adapter, for example ContentStore() or
// PublishingAPI().
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
//	  "github.com/fivetwenty-io/gdsapi/pkg/gdsclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Services are discovered from GOVUK_APP_DOMAIN, or pinned one by one.
//	  cli, err := gdsclient.New(nil,
//	    gdsclient.WithEndpoint(gdsclient.ContentStore, "http://localhost:3068"),
//	    gdsclient.WithBearerToken(gdsclient.PublishingAPI, "token"),
//	  )
//	  if err != nil { log.Fatal(err) }
//
//	  item, err := cli.ContentStore().ContentItem(ctx, "/vat-rates")
//	  if gdsapi.IsNotFound(err) {
//	    // handle a missing page
//	  }
//	  _ = item
//	}
//
// # Discovery
//
// Each service URL is taken from PLEK_SERVICE_<NAME>_URI when set, otherwise
// built as https://<name>.<GOVUK_APP_DOMAIN>. Bearer tokens default to
// <NAME>_BEARER_TOKEN. Use WithEnvironment to read these keys from a
// prepared viper instance instead of the process environment.
//
// # Caching
//
// The default config shares one in-memory cache between every client built
// from it. GET responses are kept until the expiry their Cache-Control and
// Date headers give, and writes through the same client drop cached reads
// of the written URL.
package gdsclient
