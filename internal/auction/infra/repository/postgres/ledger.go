package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
)

const auctionColumns = `id, product_id, store_id, start_price, reserve_price, current_bid, current_bidder,
       min_increment, start_at, end_at, auto_extend, extend_minutes, status, created_at, updated_at`

const bidColumns = `id, auction_id, bidder_id, amount, is_proxy, seq, created_at`

// Ledger implements domain.Ledger on a pgx connection pool. Exclusive access
// to an auction row inside a transaction uses SELECT ... FOR UPDATE.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) GetAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	return scanAuction(l.pool.QueryRow(ctx, query, id))
}

func (l *Ledger) BidsSince(ctx context.Context, auctionID uuid.UUID, since time.Time) ([]*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE auction_id = $1 AND created_at >= $2
        ORDER BY created_at ASC, seq ASC
    `
	rows, err := l.pool.Query(ctx, query, auctionID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBids(rows)
}

func (l *Ledger) DueAuctions(ctx context.Context, now time.Time, endingSoonWindow time.Duration) ([]*domain.Auction, error) {
	query := `
        SELECT ` + auctionColumns + `
        FROM auctions
        WHERE (status = $1 AND start_at <= $4)
           OR (status = $2 AND end_at <= $5)
           OR (status = $3 AND end_at <= $4)
    `
	rows, err := l.pool.Query(ctx, query,
		domain.StatusScheduled, domain.StatusRunning, domain.StatusEndingSoon,
		now, now.Add(endingSoonWindow),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return auctions, nil
}

// WithinTx runs fn in one transaction. Serialization and deadlock failures are
// mapped to domain.ErrTxConflict so the engine can retry.
func (l *Ledger) WithinTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("ledger: failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		return mapConflict(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapConflict(fmt.Errorf("ledger: failed to commit transaction: %w", err))
	}
	return nil
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return fmt.Errorf("%v: %w", err, domain.ErrTxConflict)
		}
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	a := &domain.Auction{}
	var (
		reserve decimal.NullDecimal
		current decimal.NullDecimal
		bidder  *uuid.UUID
	)
	err := row.Scan(
		&a.ID,
		&a.ProductID,
		&a.StoreID,
		&a.StartPrice,
		&reserve,
		&current,
		&bidder,
		&a.MinIncrement,
		&a.StartAt,
		&a.EndAt,
		&a.AutoExtend,
		&a.ExtendMinutes,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}
	if reserve.Valid {
		a.ReservePrice = &reserve.Decimal
	}
	if current.Valid {
		a.CurrentBid = &current.Decimal
	}
	a.CurrentBidder = bidder
	return a, nil
}

func collectBids(rows pgx.Rows) ([]*domain.Bid, error) {
	var bids []*domain.Bid
	for rows.Next() {
		b := &domain.Bid{}
		err := rows.Scan(
			&b.ID,
			&b.AuctionID,
			&b.BidderID,
			&b.Amount,
			&b.IsProxy,
			&b.Seq,
			&b.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}
