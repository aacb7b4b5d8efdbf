// Package policy implements tenant policy decisions and policy import.
//
// A policy pairs equality criteria over the decision input with a decision
// spec. The engine loads a tenant's policies, orders them by priority
// (descending), import position and id, and returns the decision of the
// first policy whose criteria all match. When nothing matches the decision
// is allow.
//
// # Fail-Open
//
// Decide never surfaces store or evaluation failures. They are logged at
// WARN, counted under path="fallback", and answered with allow. Only input
// without a tenant is rejected.
//
// # Import
//
// Import replaces a tenant's whole policy set in one store transaction, so
// concurrent decisions see either the old set or the new one.
//
//	importer := policy.NewImporter(st, logger)
//	n, err := importer.Import(ctx, "t1", "2026-03-01", rules)
//
//	engine := policy.NewEngine(st, logger, policy.WithRecorder(collector))
//	decision, err := engine.Decide(ctx, policy.DecisionInput{TenantID: "t1", Environment: "prd"})
package policy
