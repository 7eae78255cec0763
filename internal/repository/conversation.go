package repository

import (
	"context"
	"errors"

	"github.com/civicworks/countychat/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository handles persistence of conversations and their
// append-only message log.
type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func (r *ConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	if err := domain.ValidateConversation(conv); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid conversation", err)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversations (id, language, started_at) VALUES ($1, $2, $3)`,
		conv.ID, conv.Language, conv.StartedAt,
	)
	return err
}

func (r *ConversationRepository) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	var deptID *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, language, department_id, message_count, satisfaction_rating, started_at
		 FROM conversations WHERE id = $1`,
		id,
	).Scan(&conv.ID, &conv.Language, &deptID, &conv.MessageCount, &conv.SatisfactionRating, &conv.StartedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	if deptID != nil {
		conv.DepartmentID = *deptID
	}
	return &conv, nil
}

// SetDepartment records the routed department on a conversation. The write is
// idempotent and performed on every turn, even when the department is
// unchanged.
func (r *ConversationRepository) SetDepartment(ctx context.Context, conversationID, departmentID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE conversations SET department_id = $1 WHERE id = $2`,
		nullableString(departmentID), conversationID,
	)
	return err
}

// AppendMessage inserts a message and increments the conversation's message
// count in the same transaction.
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if err := domain.ValidateMessage(msg); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid message", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO messages (conversation_id, role, content, department_id, tokens_used, response_time_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		nullableString(msg.DepartmentID),
		msg.TokensUsed,
		msg.ResponseTimeMS,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET message_count = message_count + 1 WHERE id = $1`,
		msg.ConversationID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// History returns the most recent messages of a conversation in chronological
// order, capped at limit.
func (r *ConversationRepository) History(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 6
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, department_id, tokens_used, response_time_ms, created_at
		 FROM messages
		 WHERE conversation_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		conversationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		var deptID *string
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content,
			&deptID, &msg.TokensUsed, &msg.ResponseTimeMS, &msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		if deptID != nil {
			msg.DepartmentID = *deptID
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; reverse to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// SetSatisfaction records a 1-5 satisfaction rating on a conversation.
func (r *ConversationRepository) SetSatisfaction(ctx context.Context, conversationID string, rating int) error {
	if rating < 1 || rating > 5 {
		return domain.ErrInvalidRating
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE conversations SET satisfaction_rating = $1 WHERE id = $2`,
		rating, conversationID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}
