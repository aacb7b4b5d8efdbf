package postgres

import (
	"context"
	"fmt"

	"mercator-hq/arbiter/pkg/policy"

	"github.com/jackc/pgx/v5"
)

const policyColumns = `id, tenant_id, name, priority, version, position,
	match_use_case_id, match_environment, match_agent_id, match_intent_name,
	match_risk_level, match_data_sensitivity, match_model,
	effect, override_model, override_agent, reason,
	created_at, updated_at`

func (s *Store) ListPoliciesByTenant(ctx context.Context, tenantID string) ([]policy.Policy, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+policyColumns+`
		FROM policies
		WHERE tenant_id = $1
		ORDER BY priority DESC, position ASC, id ASC`, tenantID)
	if err != nil {
		return nil, wrap("list_policies", err)
	}
	defer rows.Close()

	var out []policy.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, wrap("list_policies", err)
		}
		out = append(out, p)
	}
	return out, wrap("list_policies", rows.Err())
}

// ReplacePolicies deletes and inserts in one transaction; the insert is a
// single batch round trip.
func (s *Store) ReplacePolicies(ctx context.Context, tenantID string, policies []policy.Policy) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrap("replace_policies", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM policies WHERE tenant_id = $1`, tenantID); err != nil {
		return wrap("replace_policies", err)
	}

	batch := &pgx.Batch{}
	for _, p := range policies {
		if p.TenantID != tenantID {
			return wrap("replace_policies", fmt.Errorf("policy %s belongs to tenant %s, not %s", p.ID, p.TenantID, tenantID))
		}
		batch.Queue(`INSERT INTO policies (`+policyColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
			p.ID, p.TenantID, p.Name, p.Priority, p.Version, p.Position,
			optional(p.Match.UseCaseID), optional(p.Match.Environment), optional(p.Match.AgentID),
			optional(p.Match.IntentName), optional(p.Match.RiskLevel), optional(p.Match.DataSensitivity),
			optional(p.Match.Model),
			string(p.Decision.Effect), optional(p.Decision.OverrideModel), optional(p.Decision.OverrideAgent),
			optional(p.Decision.Reason),
			p.CreatedAt, p.UpdatedAt,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return wrap("replace_policies", err)
		}
	}

	return wrap("replace_policies", tx.Commit(ctx))
}

func scanPolicy(row pgx.Row) (policy.Policy, error) {
	var (
		p                                                   policy.Policy
		useCase, env, agent, intent, risk, sensitivity, mdl *string
		effect                                              string
		overrideModel, overrideAgent, reason                *string
	)
	if err := row.Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Priority, &p.Version, &p.Position,
		&useCase, &env, &agent, &intent, &risk, &sensitivity, &mdl,
		&effect, &overrideModel, &overrideAgent, &reason,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return policy.Policy{}, err
	}

	p.Match = policy.MatchCriteria{
		UseCaseID:       deref(useCase),
		Environment:     deref(env),
		AgentID:         deref(agent),
		IntentName:      deref(intent),
		RiskLevel:       deref(risk),
		DataSensitivity: deref(sensitivity),
		Model:           deref(mdl),
	}
	p.Decision = policy.DecisionSpec{
		Effect:        policy.Effect(effect),
		OverrideModel: deref(overrideModel),
		OverrideAgent: deref(overrideAgent),
		Reason:        deref(reason),
	}
	p.CreatedAt, p.UpdatedAt = utc(p.CreatedAt), utc(p.UpdatedAt)
	return p, nil
}
