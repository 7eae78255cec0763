package repository

import (
	"context"
	"time"

	"github.com/civicworks/countychat/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalyticsRepository aggregates conversation and message statistics for the
// admin dashboard.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

type OverviewStats struct {
	TotalConversations int64
	TotalMessages      int64
	AvgResponseTimeMS  float64
	AvgSatisfaction    *float64
}

type DepartmentCount struct {
	Slug  string
	Name  string
	Count int64
}

type LanguageCount struct {
	Language string
	Count    int64
}

type QuestionCount struct {
	Message string
	Count   int64
}

type ConversationSummary struct {
	ID                 string
	Language           string
	Department         string
	StartedAt          time.Time
	MessageCount       int
	FirstMessage       string
	SatisfactionRating *int
}

type ConversationPageResult struct {
	Items      []*ConversationSummary
	NextCursor string
	HasMore    bool
}

func (r *AnalyticsRepository) Overview(ctx context.Context, days int) (*OverviewStats, error) {
	var stats OverviewStats
	var avgResponse *float64
	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(DISTINCT c.id),
			COUNT(m.id),
			AVG(m.response_time_ms) FILTER (WHERE m.role = 'assistant'),
			AVG(c.satisfaction_rating) FILTER (WHERE c.satisfaction_rating IS NOT NULL)
		 FROM conversations c
		 LEFT JOIN messages m ON m.conversation_id = c.id
		 WHERE c.started_at >= now() - ($1 || ' days')::interval`,
		days,
	).Scan(&stats.TotalConversations, &stats.TotalMessages, &avgResponse, &stats.AvgSatisfaction)
	if err != nil {
		return nil, err
	}
	if avgResponse != nil {
		stats.AvgResponseTimeMS = *avgResponse
	}
	return &stats, nil
}

func (r *AnalyticsRepository) ByDepartment(ctx context.Context, days int) ([]*DepartmentCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT d.slug, d.name, COUNT(c.id)
		 FROM departments d
		 LEFT JOIN conversations c ON c.department_id = d.id
			AND c.started_at >= now() - ($1 || ' days')::interval
		 GROUP BY d.slug, d.name
		 ORDER BY COUNT(c.id) DESC, d.slug`,
		days,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []*DepartmentCount
	for rows.Next() {
		var dc DepartmentCount
		if err := rows.Scan(&dc.Slug, &dc.Name, &dc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, &dc)
	}
	return counts, rows.Err()
}

func (r *AnalyticsRepository) ByLanguage(ctx context.Context, days int) ([]*LanguageCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT language, COUNT(*)
		 FROM conversations
		 WHERE started_at >= now() - ($1 || ' days')::interval
		 GROUP BY language
		 ORDER BY COUNT(*) DESC`,
		days,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []*LanguageCount
	for rows.Next() {
		var lc LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, &lc)
	}
	return counts, rows.Err()
}

func (r *AnalyticsRepository) TopQuestions(ctx context.Context, days, limit int) ([]*QuestionCount, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.pool.Query(ctx,
		`SELECT LOWER(TRIM(content)), COUNT(*)
		 FROM messages
		 WHERE role = 'user'
		   AND created_at >= now() - ($1 || ' days')::interval
		 GROUP BY LOWER(TRIM(content))
		 ORDER BY COUNT(*) DESC
		 LIMIT $2`,
		days, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []*QuestionCount
	for rows.Next() {
		var qc QuestionCount
		if err := rows.Scan(&qc.Message, &qc.Count); err != nil {
			return nil, err
		}
		questions = append(questions, &qc)
	}
	return questions, rows.Err()
}

// RecentConversations lists conversations newest first with cursor pagination.
func (r *AnalyticsRepository) RecentConversations(ctx context.Context, cursor *pagination.Cursor, limit int) (*ConversationPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	const baseQuery = `
		SELECT c.id, c.language, COALESCE(d.name, ''), c.started_at, c.message_count,
		       COALESCE((SELECT content FROM messages
		                 WHERE conversation_id = c.id AND role = 'user'
		                 ORDER BY created_at LIMIT 1), ''),
		       c.satisfaction_rating
		FROM conversations c
		LEFT JOIN departments d ON d.id = c.department_id`

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.pool.Query(ctx,
			baseQuery+`
			WHERE (c.started_at, c.id) < ($1, $2)
			ORDER BY c.started_at DESC, c.id DESC
			LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.pool.Query(ctx,
			baseQuery+`
			ORDER BY c.started_at DESC, c.id DESC
			LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ConversationSummary
	for rows.Next() {
		var cs ConversationSummary
		if err := rows.Scan(
			&cs.ID, &cs.Language, &cs.Department, &cs.StartedAt,
			&cs.MessageCount, &cs.FirstMessage, &cs.SatisfactionRating,
		); err != nil {
			return nil, err
		}
		items = append(items, &cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	result := &ConversationPageResult{Items: items, HasMore: hasMore}
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		result.NextCursor = pagination.EncodeCursor(last.ID, last.StartedAt)
	}
	return result, nil
}
