package sqlite

import (
	"context"

	"mercator-hq/arbiter/pkg/stats"
)

// aggregateQuery counts each trace's events with correlated subqueries so
// only the filtered traces are visited, then groups by use case. The
// summary is the sum of the groups.
const aggregateQuery = `
SELECT use_case_id,
       COUNT(*),
       COALESCE(SUM(model_calls), 0),
       COALESCE(SUM(agent_calls), 0),
       MAX(created_at)
FROM (
    SELECT t.use_case_id,
           t.created_at,
           (SELECT COUNT(*) FROM model_calls m WHERE m.trace_id = t.id) AS model_calls,
           (SELECT COUNT(*) FROM agent_calls a WHERE a.trace_id = t.id) AS agent_calls
    FROM traces t
    WHERE t.tenant_id = ?
      AND t.created_at >= ?
      AND t.created_at <= ?
      AND (? = '' OR t.environment = ?)
) x
GROUP BY use_case_id
ORDER BY COUNT(*) DESC, use_case_id ASC`

func (s *Store) Aggregate(ctx context.Context, f stats.Filter) (stats.Summary, []stats.UseCaseStats, error) {
	f = f.Normalized()
	rows, err := s.db.QueryContext(ctx, aggregateQuery,
		f.TenantID, formatTime(f.From), formatTime(f.To), f.Environment, f.Environment)
	if err != nil {
		return stats.Summary{}, nil, wrap("aggregate", err)
	}
	defer rows.Close()

	var (
		summary stats.Summary
		out     []stats.UseCaseStats
	)
	for rows.Next() {
		var (
			row    stats.UseCaseStats
			lastAt string
		)
		if err := rows.Scan(&row.UseCaseID, &row.Traces, &row.ModelCalls, &row.AgentCalls, &lastAt); err != nil {
			return stats.Summary{}, nil, wrap("aggregate", err)
		}
		if row.LastTraceAt, err = parseTime(lastAt); err != nil {
			return stats.Summary{}, nil, wrap("aggregate", err)
		}
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
