package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartticket/ticket-api/internal/domain"
)

// CommentRepository reads ticket thread comments.
type CommentRepository interface {
	ListByTicket(ctx context.Context, ticketID string, page Pagination) ([]domain.TicketComment, int, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, page Pagination) ([]domain.TicketComment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_comments WHERE ticket_id=$1`, ticketID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	const query = `
        SELECT id, ticket_id, author_user_id, text, created_at
        FROM ticket_comments WHERE ticket_id=$1
        ORDER BY created_at ASC, id ASC
        LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	result := []domain.TicketComment{}
	for rows.Next() {
		var comment domain.TicketComment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorUserID,
			&comment.Text,
			&comment.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		comment.CreatedAt = comment.CreatedAt.UTC()
		result = append(result, comment)
	}
	return result, total, rows.Err()
}

func insertComment(ctx context.Context, q querier, comment *domain.TicketComment) error {
	const query = `
        INSERT INTO ticket_comments (id, ticket_id, author_user_id, text, created_at)
        VALUES ($1,$2,$3,$4,$5)`
	if _, err := q.Exec(ctx, query,
		comment.ID,
		comment.TicketID,
		comment.AuthorUserID,
		comment.Text,
		comment.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}
