package postgres

import (
	"context"

	"mercator-hq/arbiter/pkg/stats"
)

const aggregateQuery = `
SELECT use_case_id,
       COUNT(*)::bigint,
       COALESCE(SUM(model_calls), 0)::bigint,
       COALESCE(SUM(agent_calls), 0)::bigint,
       MAX(created_at)
FROM (
    SELECT t.use_case_id,
           t.created_at,
           (SELECT COUNT(*) FROM model_calls m WHERE m.trace_id = t.id) AS model_calls,
           (SELECT COUNT(*) FROM agent_calls a WHERE a.trace_id = t.id) AS agent_calls
    FROM traces t
    WHERE t.tenant_id = $1
      AND t.created_at >= $2
      AND t.created_at <= $3
      AND ($4::text = '' OR t.environment = $4::text)
) x
GROUP BY use_case_id
ORDER BY COUNT(*) DESC, use_case_id ASC`

func (s *Store) Aggregate(ctx context.Context, f stats.Filter) (stats.Summary, []stats.UseCaseStats, error) {
	f = f.Normalized()
	rows, err := s.pool.Query(ctx, aggregateQuery, f.TenantID, f.From, f.To, f.Environment)
	if err != nil {
		return stats.Summary{}, nil, wrap("aggregate", err)
	}
	defer rows.Close()

	var (
		summary stats.Summary
		out     []stats.UseCaseStats
	)
	for rows.Next() {
		var row stats.UseCaseStats
		if err := rows.Scan(&row.UseCaseID, &row.Traces, &row.ModelCalls, &row.AgentCalls, &row.LastTraceAt); err != nil {
			return stats.Summary{}, nil, wrap("aggregate", err)
		}
		row.LastTraceAt = row.LastTraceAt.UTC()
		summary.TotalTraces += row.Traces
		summary.TotalModelCalls += row.ModelCalls
		summary.TotalAgentCalls += row.AgentCalls
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return stats.Summary{}, nil, wrap("aggregate", err)
	}
	return summary, out, nil
}
