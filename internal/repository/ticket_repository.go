package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackclub/stonepheus/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Lookups that match no row
// return pgx.ErrNoRows.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByFrontend(ctx context.Context, channel, ts string) (*domain.Ticket, error)
	GetByBackend(ctx context.Context, backendTS string, channels []string) (*domain.Ticket, error)
	SetResolved(ctx context.Context, channel, ts string, resolved bool) error
	SetAssignedUser(ctx context.Context, channel, ts, userID string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (channel, ts, backend_ts)
        VALUES ($1,$2,$3)
        ON CONFLICT (channel, ts) DO NOTHING
        RETURNING id, resolved, created_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Channel,
		ticket.TS,
		ticket.BackendTS,
	).Scan(&ticket.ID, &ticket.Resolved, &ticket.CreatedAt)
	if err == pgx.ErrNoRows {
		// Conflict path: the ticket already exists, a redelivered event.
		existing, getErr := r.GetByFrontend(ctx, ticket.Channel, ticket.TS)
		if getErr != nil {
			return getErr
		}
		*ticket = *existing
		return nil
	}
	return err
}

func (r *ticketRepository) GetByFrontend(ctx context.Context, channel, ts string) (*domain.Ticket, error) {
	const query = `
        SELECT id, channel, ts, backend_ts, resolved, assigned_user, created_at
        FROM tickets WHERE channel=$1 AND ts=$2`
	return r.fetchSingle(ctx, query, channel, ts)
}

func (r *ticketRepository) GetByBackend(ctx context.Context, backendTS string, channels []string) (*domain.Ticket, error) {
	const query = `
        SELECT id, channel, ts, backend_ts, resolved, assigned_user, created_at
        FROM tickets WHERE backend_ts=$1 AND channel = ANY($2)`
	return r.fetchSingle(ctx, query, backendTS, channels)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.Channel,
		&ticket.TS,
		&ticket.BackendTS,
		&ticket.Resolved,
		&ticket.AssignedUser,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) SetResolved(ctx context.Context, channel, ts string, resolved bool) error {
	const query = `UPDATE tickets SET resolved=$1 WHERE channel=$2 AND ts=$3`
	cmd, err := r.pool.Exec(ctx, query, resolved, channel, ts)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) SetAssignedUser(ctx context.Context, channel, ts, userID string) error {
	const query = `UPDATE tickets SET assigned_user=$1 WHERE channel=$2 AND ts=$3`
	cmd, err := r.pool.Exec(ctx, query, userID, channel, ts)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
