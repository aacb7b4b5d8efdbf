/*
Package auth provides API key authentication for the Arbiter API.

Keys are configured under server.auth.keys. A request presents its key in
the configured header (X-API-Key by default) or as a bearer token:

	curl -H 'Authorization: Bearer sk-ops-...' https://arbiter/v1/decisions

The middleware rejects a missing, unknown or disabled key with 401 and a
JSON error body. The authenticated key is stored in the request context:

	key, ok := auth.KeyFromContext(r.Context())

A key may be restricted to a list of tenants. Handlers call CheckTenant
with the tenant an operation addresses; requests without an authenticated
key (auth disabled) are always allowed.

Key values are compared by SHA-256 digest and never logged; logs carry the
key name only.
*/
package auth
