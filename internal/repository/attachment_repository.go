package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartticket/ticket-api/internal/domain"
)

// AttachmentRepository reads attachment metadata.
type AttachmentRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAttachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAttachment, error) {
	const query = `
        SELECT id, ticket_id, url, file_name, content_type, created_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	result := []domain.TicketAttachment{}
	for rows.Next() {
		var attachment domain.TicketAttachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.URL,
			&attachment.FileName,
			&attachment.ContentType,
			&attachment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachment.CreatedAt = attachment.CreatedAt.UTC()
		result = append(result, attachment)
	}
	return result, rows.Err()
}

func insertAttachment(ctx context.Context, q querier, attachment *domain.TicketAttachment) error {
	const query = `
        INSERT INTO ticket_attachments (id, ticket_id, url, file_name, content_type, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := q.Exec(ctx, query,
		attachment.ID,
		attachment.TicketID,
		attachment.URL,
		attachment.FileName,
		attachment.ContentType,
		attachment.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}
