package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartticket/ticket-api/internal/domain"
)

// TicketFilter captures list and search parameters.
type TicketFilter struct {
	OwnerID    *string
	Status     *domain.TicketStatus
	Assigned   *bool
	AssigneeID *string
	Search     string
	Pagination Pagination
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	// WithinTx runs fn in one store transaction. fn's error aborts it.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx TicketTx) error) error
}

// TicketTx is the write surface available inside a transaction.
type TicketTx interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update persists ticket when the stored version equals ticket.Version
	// and bumps the version. A mismatch yields ErrConcurrencyConflict.
	Update(ctx context.Context, ticket *domain.Ticket) error
	AppendEvent(ctx context.Context, event *domain.TicketEvent) error
	AddComment(ctx context.Context, comment *domain.TicketComment) error
	AddAttachment(ctx context.Context, attachment *domain.TicketAttachment) error
	UserExists(ctx context.Context, userID string) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, status, priority, created_by_user_id, assigned_to_user_id,
               created_at, due_at, closed_at, assigned_at, version`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return getTicket(ctx, r.pool, id)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("created_by_user_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Assigned != nil {
		if *filter.Assigned {
			clauses = append(clauses, "assigned_to_user_id IS NOT NULL")
		} else {
			clauses = append(clauses, "assigned_to_user_id IS NULL")
		}
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_user_id=$%d", len(args)))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+strings.ToLower(term)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tickets WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tickets: %w", err)
	}

	page := filter.Pagination
	if page.PageSize == 0 {
		page = NewPagination(page.Page, page.PageSize)
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, page.Limit(), page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx TicketTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &ticketTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type ticketTx struct {
	tx pgx.Tx
}

func (t *ticketTx) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return getTicket(ctx, t.tx, id)
}

func (t *ticketTx) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, title, description, status, priority, created_by_user_id, assigned_to_user_id,
                             created_at, due_at, closed_at, assigned_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,1)`
	_, err := t.tx.Exec(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.CreatedByUserID,
		ticket.AssignedToUserID,
		ticket.CreatedAt,
		ticket.DueAt,
		ticket.ClosedAt,
		ticket.AssignedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", translate(err))
	}
	ticket.Version = 1
	return nil
}

func (t *ticketTx) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, assigned_to_user_id=$5,
            due_at=$6, closed_at=$7, assigned_at=$8, version=version+1
        WHERE id=$9 AND version=$10`
	cmd, err := t.tx.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.AssignedToUserID,
		ticket.DueAt,
		ticket.ClosedAt,
		ticket.AssignedAt,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrConcurrencyConflict
	}
	ticket.Version++
	return nil
}

func (t *ticketTx) AppendEvent(ctx context.Context, event *domain.TicketEvent) error {
	return insertEvent(ctx, t.tx, event)
}

func (t *ticketTx) AddComment(ctx context.Context, comment *domain.TicketComment) error {
	return insertComment(ctx, t.tx, comment)
}

func (t *ticketTx) AddAttachment(ctx context.Context, attachment *domain.TicketAttachment) error {
	return insertAttachment(ctx, t.tx, attachment)
}

func (t *ticketTx) UserExists(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`
	var exists bool
	if err := t.tx.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

func getTicket(ctx context.Context, q querier, id string) (*domain.Ticket, error) {
	ticket, err := scanTicket(q.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return ticket, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		status   string
		priority string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&status,
		&priority,
		&ticket.CreatedByUserID,
		&ticket.AssignedToUserID,
		&ticket.CreatedAt,
		&ticket.DueAt,
		&ticket.ClosedAt,
		&ticket.AssignedAt,
		&ticket.Version,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	ticket.Priority = domain.TicketPriority(priority)
	normalizeTicketTimes(&ticket)
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// normalizeTicketTimes puts every timestamp in UTC so rendered ETags do
// not depend on the session time zone.
func normalizeTicketTimes(t *domain.Ticket) {
	t.CreatedAt = t.CreatedAt.UTC()
	for _, ts := range []**time.Time{&t.DueAt, &t.ClosedAt, &t.AssignedAt} {
		if *ts != nil {
			v := (**ts).UTC()
			*ts = &v
		}
	}
}
