// Package bundle loads tenant policy sets from YAML files and imports them.
//
// A bundle file holds one tenant's complete policy set:
//
//	tenant_id: acme
//	version: "2026-03-01"
//	policies:
//	  - name: prod-dba-needs-approval
//	    priority: 100
//	    match:
//	      environment: prd
//	      agent_id: agent-dba
//	    decision:
//	      effect: require_approval
//	      reason: production database access
//
// Rule order in the file becomes the import position. A directory is loaded
// all-or-nothing: if any file fails to parse or validate, nothing is
// imported. Tenants without a bundle file are left untouched.
package bundle
