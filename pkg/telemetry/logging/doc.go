// Package logging builds the structured logger used across Arbiter.
//
// # Overview
//
// The logger is a plain *slog.Logger (embedded in Logger) with:
//   - JSON or text output
//   - A runtime-adjustable minimum level (SetLevel), used on config reload
//   - Request, tenant and trace identifiers pulled from the context of
//     every *Context call
//   - Masking of sensitive attribute values (passwords, tokens, DSNs)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//
//	ctx = logging.WithRequestID(ctx, "req_123")
//	ctx = logging.WithTenantID(ctx, "t1")
//	logger.InfoContext(ctx, "decision made", "effect", "allow")
//	// {"level":"INFO","msg":"decision made","effect":"allow","request_id":"req_123","tenant_id":"t1"}
//
// Components accept a *slog.Logger; pass logger.Logger.
package logging
