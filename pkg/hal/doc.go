// Package hal resolves HAL hypermedia documents.
//
// A Resolver walks a decoded JSON document and returns a Resource: the
// document's state fields, an Accessor in place of the links collection, an
// EmbeddedAccessor in place of the embedded collection and, for every
// relation selected with a Follow selector, the fetched and processed
// target document.
//
// Link fetches and embedded resolutions of one level run concurrently. The
// resolver waits for all of them before returning, and any failure other
// than an absent link (see Options.AbsentStatuses) fails the whole call:
// callers get either a fully resolved tree or an error.
//
//	r := hal.NewResolver(hal.Config{Fetcher: client, Logger: logger})
//	res, err := r.Process(ctx, hal.Fetch(client, "https://api.example.com/orders"),
//		hal.ProcessOptions{Follow: hal.FollowRel("customer")})
//
// The Interceptor adapts the resolver to transport responses: responses
// carrying the hypermedia media type get their root-relative links made
// absolute against the request origin and are then resolved.
package hal
