package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartticket/ticket-api/internal/domain"
)

// TicketEventRepository reads the append-only ticket audit trail.
type TicketEventRepository interface {
	ListByTicket(ctx context.Context, ticketID string, page Pagination) ([]domain.TicketEvent, int, error)
}

type ticketEventRepository struct {
	pool *pgxpool.Pool
}

// NewTicketEventRepository builds repository.
func NewTicketEventRepository(pool *pgxpool.Pool) TicketEventRepository {
	return &ticketEventRepository{pool: pool}
}

func (r *ticketEventRepository) ListByTicket(ctx context.Context, ticketID string, page Pagination) ([]domain.TicketEvent, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_events WHERE ticket_id=$1`, ticketID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	const query = `
        SELECT id, ticket_id, type, actor_user_id, created_at, data
        FROM ticket_events WHERE ticket_id=$1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	result := []domain.TicketEvent{}
	for rows.Next() {
		var (
			event     domain.TicketEvent
			eventType string
			data      []byte
		)
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&eventType,
			&event.ActorUserID,
			&event.CreatedAt,
			&data,
		); err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		event.Type = domain.TicketEventType(eventType)
		event.CreatedAt = event.CreatedAt.UTC()
		event.Data = data
		result = append(result, event)
	}
	return result, total, rows.Err()
}

func insertEvent(ctx context.Context, q querier, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (id, ticket_id, type, actor_user_id, created_at, data)
        VALUES ($1,$2,$3,$4,$5,$6::jsonb)`
	var data any
	if len(event.Data) > 0 {
		data = string(event.Data)
	}
	if _, err := q.Exec(ctx, query,
		event.ID,
		event.TicketID,
		string(event.Type),
		event.ActorUserID,
		event.CreatedAt,
		data,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
