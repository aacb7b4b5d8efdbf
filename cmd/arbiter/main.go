// Arbiter is a governance decision-and-audit node for AI agents.
//
// It answers policy decisions for intended actions, records each governed
// action as a trace with its model calls, agent calls and audit events, and
// reports usage overviews per tenant and use case.
//
// Usage:
//
//	# Start the API server with default configuration
//	arbiter run
//
//	# Start with a configuration file
//	arbiter run --config /etc/arbiter/config.yaml
//
//	# Create or upgrade the database schema
//	arbiter migrate
//
//	# Validate and import policy bundles
//	arbiter policy validate ./policies
//	arbiter policy import ./policies
//
//	# Ask for a decision
//	arbiter policy decide --tenant acme --environment prd --agent agent-dba
//
//	# Usage overview as CSV
//	arbiter stats overview --tenant acme --format csv
//
//	# Cancel traces left running
//	arbiter sweep --max-age 24h
package main

import "os"

func main() {
	os.Exit(Execute())
}
