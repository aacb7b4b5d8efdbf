package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"mercator-hq/arbiter/pkg/policy"
)

const policyColumns = `id, tenant_id, name, priority, version, position,
	match_use_case_id, match_environment, match_agent_id, match_intent_name,
	match_risk_level, match_data_sensitivity, match_model,
	effect, override_model, override_agent, reason,
	created_at, updated_at`

func (s *Store) ListPoliciesByTenant(ctx context.Context, tenantID string) ([]policy.Policy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+policyColumns+`
		FROM policies
		WHERE tenant_id = ?
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

// ReplacePolicies deletes and inserts in one IMMEDIATE transaction, so
// readers see either the old set or the new one.
func (s *Store) ReplacePolicies(ctx context.Context, tenantID string, policies []policy.Policy) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("replace_policies", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM policies WHERE tenant_id = ?`, tenantID); err != nil {
		return wrap("replace_policies", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO policies (`+policyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return wrap("replace_policies", err)
	}
	defer stmt.Close()

	for _, p := range policies {
		if p.TenantID != tenantID {
			return wrap("replace_policies", fmt.Errorf("policy %s belongs to tenant %s, not %s", p.ID, p.TenantID, tenantID))
		}
		_, err := stmt.ExecContext(ctx,
			p.ID, p.TenantID, p.Name, p.Priority, p.Version, p.Position,
			nullString(p.Match.UseCaseID), nullString(p.Match.Environment), nullString(p.Match.AgentID),
			nullString(p.Match.IntentName), nullString(p.Match.RiskLevel), nullString(p.Match.DataSensitivity),
			nullString(p.Match.Model),
			string(p.Decision.Effect), nullString(p.Decision.OverrideModel), nullString(p.Decision.OverrideAgent),
			nullString(p.Decision.Reason),
			formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		)
		if err != nil {
			return wrap("replace_policies", err)
		}
	}

	return wrap("replace_policies", tx.Commit())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (policy.Policy, error) {
	var (
		p                                                   policy.Policy
		useCase, env, agent, intent, risk, sensitivity, mdl sql.NullString
		effect                                              string
		overrideModel, overrideAgent, reason                sql.NullString
		createdAt, updatedAt                                string
	)
	if err := row.Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Priority, &p.Version, &p.Position,
		&useCase, &env, &agent, &intent, &risk, &sensitivity, &mdl,
		&effect, &overrideModel, &overrideAgent, &reason,
		&createdAt, &updatedAt,
	); err != nil {
		return policy.Policy{}, err
	}

	p.Match = policy.MatchCriteria{
		UseCaseID:       useCase.String,
		Environment:     env.String,
		AgentID:         agent.String,
		IntentName:      intent.String,
		RiskLevel:       risk.String,
		DataSensitivity: sensitivity.String,
		Model:           mdl.String,
	}
	p.Decision = policy.DecisionSpec{
		Effect:        policy.Effect(effect),
		OverrideModel: overrideModel.String,
		OverrideAgent: overrideAgent.String,
		Reason:        reason.String,
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return policy.Policy{}, fmt.Errorf("policy %s created_at: %w", p.ID, err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return policy.Policy{}, fmt.Errorf("policy %s updated_at: %w", p.ID, err)
	}
	return p, nil
}
