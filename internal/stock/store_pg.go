package stock

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PGStore struct{ DB *pgxpool.Pool }

// Create locks the stock row, re-checks availability and inserts inside one
// tx. Two concurrent reserves on the same (item, location) serialize on the
// FOR UPDATE lock, so active holds can never sum past on-hand.
func (s *PGStore) Create(ctx context.Context, r Reservation, now time.Time) (Reservation, bool, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Reservation{}, false, err
	}
	defer tx.Rollback(ctx)

	var onHandStr string
	err = tx.QueryRow(ctx, `
		SELECT on_hand::text FROM stock_levels
		WHERE item_id=$1 AND location_type=$2 AND location_id=$3
		FOR UPDATE`,
		r.ItemID, string(r.LocationType), r.LocationID).Scan(&onHandStr)
	onHand := decimal.Zero
	if err == nil {
		if onHand, err = decimal.NewFromString(onHandStr); err != nil {
			return Reservation{}, false, err
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, false, err
	}

	// replayed reference: hand back the original hold. Looked up after the
	// stock-row lock, so when two replays race the loser blocks until the
	// winner commits and then sees its row here.
	existing, err := scanReservation(tx.QueryRow(ctx, selectReservation+byReference,
		r.ReferenceType, r.ReferenceID, r.ItemID, string(r.LocationType), r.LocationID))
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, false, err
	}

	var reservedStr string
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity),0)::text FROM stock_reservations
		WHERE item_id=$1 AND location_type=$2 AND location_id=$3 AND expires_at > $4`,
		r.ItemID, string(r.LocationType), r.LocationID, now).Scan(&reservedStr); err != nil {
		return Reservation{}, false, err
	}
	reserved, err := decimal.NewFromString(reservedStr)
	if err != nil {
		return Reservation{}, false, err
	}

	available := onHand.Sub(reserved)
	if r.Quantity.GreaterThan(available) {
		return Reservation{}, false, &InsufficientStockError{
			ItemID:    r.ItemID,
			Requested: r.Quantity,
			Available: available,
		}
	}

	// ON CONFLICT backstops the replay lookup for items without a stock
	// row, where there is no lock to serialize on
	ct, err := tx.Exec(ctx, `
		INSERT INTO stock_reservations
			(id, item_id, location_type, location_id, quantity,
			 reference_type, reference_id, created_by, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5::numeric,$6,$7,$8,$9,$10)
		ON CONFLICT (reference_type, reference_id, item_id, location_type, location_id)
		DO NOTHING`,
		r.ID, r.ItemID, string(r.LocationType), r.LocationID, r.Quantity.String(),
		r.ReferenceType, r.ReferenceID, r.CreatedBy, r.ExpiresAt, r.CreatedAt)
	if err != nil {
		return Reservation{}, false, err
	}
	if ct.RowsAffected() == 0 {
		existing, err := scanReservation(tx.QueryRow(ctx, selectReservation+byReference,
			r.ReferenceType, r.ReferenceID, r.ItemID, string(r.LocationType), r.LocationID))
		if err != nil {
			return Reservation{}, false, err
		}
		if err := tx.Commit(ctx); err != nil {
			return Reservation{}, false, err
		}
		return existing, true, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return Reservation{}, false, err
	}
	return r, false, nil
}

const selectReservation = `
	SELECT id, item_id, location_type, location_id, quantity::text,
	       reference_type, reference_id, created_by, expires_at, created_at
	FROM stock_reservations`

const byReference = `
	WHERE reference_type=$1 AND reference_id=$2
	  AND item_id=$3 AND location_type=$4 AND location_id=$5`

func (s *PGStore) Get(ctx context.Context, id string) (Reservation, error) {
	r, err := scanReservation(s.DB.QueryRow(ctx, selectReservation+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, ErrNotFound
	}
	return r, err
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM stock_reservations WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	ct, err := s.DB.Exec(ctx, `UPDATE stock_reservations SET expires_at=$2 WHERE id=$1`, id, expiresAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ReservedQuantity(ctx context.Context, itemID string, lt LocationType, locationID string, now time.Time) (decimal.Decimal, error) {
	var sum string
	err := s.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity),0)::text FROM stock_reservations
		WHERE item_id=$1 AND location_type=$2 AND location_id=$3 AND expires_at > $4`,
		itemID, string(lt), locationID, now).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}

func (s *PGStore) OnHand(ctx context.Context, itemID string, lt LocationType, locationID string) (decimal.Decimal, error) {
	var v string
	err := s.DB.QueryRow(ctx, `
		SELECT on_hand::text FROM stock_levels
		WHERE item_id=$1 AND location_type=$2 AND location_id=$3`,
		itemID, string(lt), locationID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(v)
}

func (s *PGStore) DeleteExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	rows, err := s.DB.Query(ctx, `
		DELETE FROM stock_reservations
		WHERE id IN (
			SELECT id FROM stock_reservations
			WHERE expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
		)
		RETURNING id, item_id, location_type, location_id, quantity::text,
		          reference_type, reference_id, created_by, expires_at, created_at`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (Reservation, error) {
	var r Reservation
	var lt, qty string
	if err := row.Scan(&r.ID, &r.ItemID, &lt, &r.LocationID, &qty,
		&r.ReferenceType, &r.ReferenceID, &r.CreatedBy, &r.ExpiresAt, &r.CreatedAt); err != nil {
		return Reservation{}, err
	}
	r.LocationType = LocationType(lt)
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return Reservation{}, err
	}
	r.Quantity = q
	return r, nil
}
