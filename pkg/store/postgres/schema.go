package postgres

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// migrations are applied in order; index i creates version i+1.
var migrations = []string{schemaV1}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS policies (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    priority INTEGER NOT NULL,
    version TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL,

    match_use_case_id TEXT,
    match_environment TEXT,
    match_agent_id TEXT,
    match_intent_name TEXT,
    match_risk_level TEXT,
    match_data_sensitivity TEXT,
    match_model TEXT,

    effect TEXT NOT NULL,
    override_model TEXT,
    override_agent TEXT,
    reason TEXT,

    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_policies_tenant_order ON policies(tenant_id, priority DESC, position, id);

CREATE TABLE IF NOT EXISTS traces (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    intent_name TEXT NOT NULL,
    use_case_id TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    data_sensitivity TEXT NOT NULL,
    environment TEXT NOT NULL,
    extra TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ,
    status TEXT NOT NULL CHECK (status IN ('running', 'success', 'error', 'cancelled')),
    result_summary TEXT,
    CHECK ((status = 'running') = (ended_at IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_traces_tenant_created ON traces(tenant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_traces_status_created ON traces(status, created_at);

CREATE TABLE IF NOT EXISTS model_calls (
    id TEXT PRIMARY KEY,
    trace_id TEXT NOT NULL REFERENCES traces(id) ON DELETE CASCADE,
    provider TEXT,
    model TEXT NOT NULL,
    prompt TEXT,
    response TEXT,
    input_tokens BIGINT,
    output_tokens BIGINT,
    latency_ms BIGINT,
    metadata TEXT,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_model_calls_trace ON model_calls(trace_id, created_at, id);

CREATE TABLE IF NOT EXISTS agent_calls (
    id TEXT PRIMARY KEY,
    trace_id TEXT NOT NULL REFERENCES traces(id) ON DELETE CASCADE,
    agent_id TEXT NOT NULL,
    action TEXT,
    request TEXT,
    response TEXT,
    status TEXT,
    latency_ms BIGINT,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agent_calls_trace ON agent_calls(trace_id, created_at, id);

CREATE TABLE IF NOT EXISTS audit_events (
    id TEXT PRIMARY KEY,
    trace_id TEXT NOT NULL REFERENCES traces(id) ON DELETE CASCADE,
    event_type TEXT NOT NULL,
    actor TEXT,
    payload TEXT,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_trace ON audit_events(trace_id, created_at, id);
`

const createSchemaVersion = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertSchemaVersion = `INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`

const getSchemaVersion = `SELECT COALESCE(MAX(version), 0) FROM schema_version`

// migrationLockID serializes concurrent Migrate calls across nodes.
const migrationLockID = 0x61726269746572
