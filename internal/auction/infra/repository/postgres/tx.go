package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yahya159/bidinsouk-sub004/internal/auction/domain"
)

// ledgerTx implements domain.LedgerTx over one pgx transaction.
type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) AuctionForUpdate(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`
	return scanAuction(t.tx.QueryRow(ctx, query, id))
}

func (t *ledgerTx) SaveAuction(ctx context.Context, a *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, product_id, store_id, start_price, reserve_price, current_bid, current_bidder,
                              min_increment, start_at, end_at, auto_extend, extend_minutes, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        ON CONFLICT (id) DO UPDATE
        SET
            current_bid = EXCLUDED.current_bid,
            current_bidder = EXCLUDED.current_bidder,
            end_at = EXCLUDED.end_at,
            status = EXCLUDED.status,
            updated_at = EXCLUDED.updated_at;
    `
	_, err := t.tx.Exec(ctx, query,
		a.ID,
		a.ProductID,
		a.StoreID,
		a.StartPrice,
		a.ReservePrice,
		a.CurrentBid,
		a.CurrentBidder,
		a.MinIncrement,
		a.StartAt,
		a.EndAt,
		a.AutoExtend,
		a.ExtendMinutes,
		a.Status,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (t *ledgerTx) InsertBid(ctx context.Context, b *domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, is_proxy, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING seq
    `
	return t.tx.QueryRow(ctx, query,
		b.ID,
		b.AuctionID,
		b.BidderID,
		b.Amount,
		b.IsProxy,
		b.CreatedAt,
	).Scan(&b.Seq)
}

func (t *ledgerTx) LatestBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE auction_id = $1
        ORDER BY created_at DESC, seq DESC
        LIMIT 1
    `
	b := &domain.Bid{}
	err := t.tx.QueryRow(ctx, query, auctionID).Scan(
		&b.ID,
		&b.AuctionID,
		&b.BidderID,
		&b.Amount,
		&b.IsProxy,
		&b.Seq,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (t *ledgerTx) UpsertProxyCommitment(ctx context.Context, pc *domain.ProxyCommitment) error {
	query := `
        INSERT INTO proxy_commitments (id, auction_id, bidder_id, max_amount, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (auction_id, bidder_id) DO UPDATE
        SET
            max_amount = EXCLUDED.max_amount,
            updated_at = EXCLUDED.updated_at;
    `
	_, err := t.tx.Exec(ctx, query,
		pc.ID,
		pc.AuctionID,
		pc.BidderID,
		pc.MaxAmount,
		pc.CreatedAt,
		pc.UpdatedAt,
	)
	return err
}

func (t *ledgerTx) ActiveProxyCommitments(ctx context.Context, auctionID uuid.UUID) ([]*domain.ProxyCommitment, error) {
	query := `
        SELECT id, auction_id, bidder_id, max_amount, created_at, updated_at
        FROM proxy_commitments
        WHERE auction_id = $1
        ORDER BY created_at ASC, id ASC
    `
	rows, err := t.tx.Query(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commitments []*domain.ProxyCommitment
	for rows.Next() {
		pc := &domain.ProxyCommitment{}
		err := rows.Scan(
			&pc.ID,
			&pc.AuctionID,
			&pc.BidderID,
			&pc.MaxAmount,
			&pc.CreatedAt,
			&pc.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		commitments = append(commitments, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return commitments, nil
}

func (t *ledgerTx) ClearProxyCommitments(ctx context.Context, auctionID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM proxy_commitments WHERE auction_id = $1`, auctionID)
	return err
}
