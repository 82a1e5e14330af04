// Package memstore provides in-memory implementations of the repository
// interfaces. It backs development runs without Postgres and tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smartticket/ticket-api/internal/domain"
	"github.com/smartticket/ticket-api/internal/repository"
)

// Store holds every collection behind a single mutex so that ticket
// transactions are serialized.
type Store struct {
	mu          sync.Mutex
	tickets     map[string]*domain.Ticket
	events      []domain.TicketEvent
	comments    []domain.TicketComment
	attachments []domain.TicketAttachment
	users       map[string]*domain.User
	idempotency map[repository.IdempotencyScope]*domain.IdempotencyRecord
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tickets:     map[string]*domain.Ticket{},
		users:       map[string]*domain.User{},
		idempotency: map[repository.IdempotencyScope]*domain.IdempotencyRecord{},
	}
}

// Tickets returns the ticket repository view of the store.
func (s *Store) Tickets() repository.TicketRepository { return (*ticketRepo)(s) }

// Events returns the event repository view of the store.
func (s *Store) Events() repository.TicketEventRepository { return (*eventRepo)(s) }

// Comments returns the comment repository view of the store.
func (s *Store) Comments() repository.CommentRepository { return (*commentRepo)(s) }

// Attachments returns the attachment repository view of the store.
func (s *Store) Attachments() repository.AttachmentRepository { return (*attachmentRepo)(s) }

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }

// Idempotency returns the idempotency ledger view of the store.
func (s *Store) Idempotency() repository.IdempotencyRepository { return (*idempotencyRepo)(s) }

type ticketRepo Store

func (r *ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.Lock()
	matched := make([]domain.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if matchesFilter(t, filter) {
			matched = append(matched, *t.Clone())
		}
	}
	r.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := filter.Pagination
	if page.PageSize == 0 {
		page = repository.NewPagination(page.Page, page.PageSize)
	}
	return slicePage(matched, page), len(matched), nil
}

func matchesFilter(t *domain.Ticket, f repository.TicketFilter) bool {
	if f.OwnerID != nil && t.CreatedByUserID != *f.OwnerID {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Assigned != nil && (t.AssignedToUserID != nil) != *f.Assigned {
		return false
	}
	if f.AssigneeID != nil && (t.AssignedToUserID == nil || *t.AssignedToUserID != *f.AssigneeID) {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(t.Title), term) && !strings.Contains(strings.ToLower(t.Description), term) {
			return false
		}
	}
	return true
}

func slicePage[T any](items []T, page repository.Pagination) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// WithinTx stages writes and applies them only when fn succeeds and ctx
// is still live.
func (r *ticketRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.TicketTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &ticketTx{store: (*Store)(r), staged: map[string]*domain.Ticket{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, t := range tx.staged {
		r.tickets[id] = t
	}
	r.events = append(r.events, tx.events...)
	r.comments = append(r.comments, tx.comments...)
	r.attachments = append(r.attachments, tx.attachments...)
	return nil
}

type ticketTx struct {
	store       *Store
	staged      map[string]*domain.Ticket
	events      []domain.TicketEvent
	comments    []domain.TicketComment
	attachments []domain.TicketAttachment
}

func (tx *ticketTx) current(id string) (*domain.Ticket, bool) {
	if t, ok := tx.staged[id]; ok {
		return t, true
	}
	t, ok := tx.store.tickets[id]
	return t, ok
}

func (tx *ticketTx) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t, ok := tx.current(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t.Clone(), nil
}

func (tx *ticketTx) Create(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := tx.current(ticket.ID); ok {
		return repository.ErrDuplicate
	}
	ticket.Version = 1
	tx.staged[ticket.ID] = ticket.Clone()
	return nil
}

func (tx *ticketTx) Update(_ context.Context, ticket *domain.Ticket) error {
	stored, ok := tx.current(ticket.ID)
	if !ok || stored.Version != ticket.Version {
		return repository.ErrConcurrencyConflict
	}
	ticket.Version++
	tx.staged[ticket.ID] = ticket.Clone()
	return nil
}

func (tx *ticketTx) AppendEvent(_ context.Context, event *domain.TicketEvent) error {
	tx.events = append(tx.events, *event)
	return nil
}

func (tx *ticketTx) AddComment(_ context.Context, comment *domain.TicketComment) error {
	tx.comments = append(tx.comments, *comment)
	return nil
}

func (tx *ticketTx) AddAttachment(_ context.Context, attachment *domain.TicketAttachment) error {
	tx.attachments = append(tx.attachments, *attachment)
	return nil
}

func (tx *ticketTx) UserExists(_ context.Context, userID string) (bool, error) {
	_, ok := tx.store.users[userID]
	return ok, nil
}

type eventRepo Store

func (r *eventRepo) ListByTicket(ctx context.Context, ticketID string, page repository.Pagination) ([]domain.TicketEvent, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.Lock()
	matched := []domain.TicketEvent{}
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].TicketID == ticketID {
			matched = append(matched, r.events[i])
		}
	}
	r.mu.Unlock()
	return slicePage(matched, page), len(matched), nil
}

type commentRepo Store

func (r *commentRepo) ListByTicket(ctx context.Context, ticketID string, page repository.Pagination) ([]domain.TicketComment, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.Lock()
	matched := []domain.TicketComment{}
	for _, c := range r.comments {
		if c.TicketID == ticketID {
			matched = append(matched, c)
		}
	}
	r.mu.Unlock()
	return slicePage(matched, page), len(matched), nil
}

type attachmentRepo Store

func (r *attachmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAttachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []domain.TicketAttachment{}
	for _, a := range r.attachments {
		if a.TicketID == ticketID {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

type userRepo Store

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if _, ok := r.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	if u.LockoutUntil != nil {
		v := *u.LockoutUntil
		c.LockoutUntil = &v
	}
	return &c
}

type idempotencyRepo Store

func (r *idempotencyRepo) Find(ctx context.Context, scope repository.IdempotencyScope) (*domain.IdempotencyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.idempotency[scope]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *rec
	return &c, nil
}

func (r *idempotencyRepo) Insert(ctx context.Context, record *domain.IdempotencyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	scope := scopeOf(record)
	if _, ok := r.idempotency[scope]; ok {
		return repository.ErrDuplicate
	}
	c := *record
	c.ResponseBody = append([]byte(nil), record.ResponseBody...)
	r.idempotency[scope] = &c
	return nil
}

func (r *idempotencyRepo) Delete(ctx context.Context, record *domain.IdempotencyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	scope := scopeOf(record)
	if stored, ok := r.idempotency[scope]; ok && stored.ID == record.ID {
		delete(r.idempotency, scope)
	}
	return nil
}

func (r *idempotencyRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for scope, rec := range r.idempotency {
		if rec.Expired(now) {
			delete(r.idempotency, scope)
			removed++
		}
	}
	return removed, nil
}

func scopeOf(record *domain.IdempotencyRecord) repository.IdempotencyScope {
	return repository.IdempotencyScope{
		UserID: record.UserID,
		Key:    record.Key,
		Path:   record.Path,
		Method: record.Method,
	}
}
