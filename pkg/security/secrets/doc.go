/*
Package secrets resolves ${secret:name} references in configuration values.

Credentials such as the Postgres password, the Git access token and API
keys should not live in the configuration file. Write a reference instead
and provide the value through the environment or a mounted secrets
directory:

	storage:
	  postgres:
	    password: ${secret:db-password}

With the default prefix the reference above reads ARBITER_SECRET_DB_PASSWORD
and, when secrets.dir is set, falls back to the file <dir>/db-password.
Files must be readable by the owner only (0600 or 0400).

# Usage

	m := secrets.NewManager(cfg.Secrets, logger)
	if err := m.ResolveConfig(ctx, cfg); err != nil {
		return err
	}

Resolved values are cached for secrets.cache_ttl. Secret names are redacted
in logs and values are never logged.
*/
package secrets
