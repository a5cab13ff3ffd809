// Package httpapi exposes the document pipeline over HTTP.
//
// Every document and search route is owner-scoped. The owner comes from a
// session token (Authorization: Bearer <id>) or, for trusted callers behind
// an authenticating proxy, from the X-Owner-ID header. Documents owned by
// somebody else are reported as not found so their existence never leaks.
package httpapi
