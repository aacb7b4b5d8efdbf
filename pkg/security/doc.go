/*
Package security groups the protection layers of the Arbiter API server.

  - tls: HTTPS listener configuration with certificate hot reload and
    optional client certificate verification
  - auth: API key authentication, optionally restricted to tenants
  - secrets: ${secret:name} references in configuration, resolved from the
    environment or a secrets directory
*/
package security
