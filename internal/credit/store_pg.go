package credit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PGStore struct{ DB *pgxpool.Pool }

const selectCredit = `
	SELECT id, reference_type, reference_id, credit_type,
	       amount::text, paid_amount::text, status, due_date, credit_date
	FROM credits`

func (s *PGStore) Get(ctx context.Context, id string) (Credit, error) {
	c, err := scanCredit(s.DB.QueryRow(ctx, selectCredit+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Credit{}, ErrNotFound
	}
	return c, err
}

func (s *PGStore) PurchaseLines(ctx context.Context, purchaseID string) ([]PurchaseLine, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT item_id, quantity::text, unit_cost::text
		FROM purchase_lines WHERE purchase_id=$1`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PurchaseLine
	for rows.Next() {
		var l PurchaseLine
		var qty, cost string
		if err := rows.Scan(&l.ItemID, &qty, &cost); err != nil {
			return nil, err
		}
		if l.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if l.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PGStore) AddPayment(ctx context.Context, p Payment) (Credit, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Credit{}, err
	}
	defer tx.Rollback(ctx)

	c, err := lockCredit(ctx, tx, p.CreditID)
	if err != nil {
		return Credit{}, err
	}
	if c.Status == StatusPaid {
		return Credit{}, ErrAlreadySettled
	}
	if p.Amount.GreaterThan(c.Balance()) {
		return Credit{}, &ValidationError{Reason: "payment exceeds outstanding balance"}
	}

	c.PaidAmount = c.PaidAmount.Add(p.Amount)
	c.Status = StatusFor(c.Amount, c.PaidAmount)
	if err := applyPayment(ctx, tx, c, p); err != nil {
		return Credit{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Credit{}, err
	}
	return c, nil
}

func (s *PGStore) Settle(ctx context.Context, creditID, note string, at time.Time) (Credit, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Credit{}, err
	}
	defer tx.Rollback(ctx)

	c, err := lockCredit(ctx, tx, creditID)
	if err != nil {
		return Credit{}, err
	}
	// re-check under the lock; a concurrent settle may have won
	if c.Status == StatusPaid {
		return Credit{}, ErrAlreadySettled
	}

	p := Payment{
		ID:       uuid.NewString(),
		CreditID: creditID,
		Amount:   c.Balance(),
		Mode:     "settlement",
		Note:     note,
		PaidAt:   at,
	}
	c.PaidAmount = c.Amount
	c.Status = StatusPaid
	if err := applyPayment(ctx, tx, c, p); err != nil {
		return Credit{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Credit{}, err
	}
	return c, nil
}

func lockCredit(ctx context.Context, tx pgx.Tx, id string) (Credit, error) {
	c, err := scanCredit(tx.QueryRow(ctx, selectCredit+` WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Credit{}, ErrNotFound
	}
	return c, err
}

func applyPayment(ctx context.Context, tx pgx.Tx, c Credit, p Payment) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO credit_payments(id, credit_id, amount, mode, note, paid_at)
		VALUES ($1,$2,$3::numeric,$4,$5,$6)`,
		p.ID, p.CreditID, p.Amount.String(), p.Mode, p.Note, p.PaidAt); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE credits
		SET paid_amount=$2::numeric, balance=$3::numeric, status=$4, updated_at=now()
		WHERE id=$1`,
		c.ID, c.PaidAmount.String(), c.Balance().String(), string(c.Status))
	return err
}

func scanCredit(row interface{ Scan(...any) error }) (Credit, error) {
	var c Credit
	var ctype, status, amount, paid string
	if err := row.Scan(&c.ID, &c.ReferenceType, &c.ReferenceID, &ctype,
		&amount, &paid, &status, &c.DueDate, &c.CreditDate); err != nil {
		return Credit{}, err
	}
	c.Type = Type(ctype)
	c.Status = Status(status)
	var err error
	if c.Amount, err = decimal.NewFromString(amount); err != nil {
		return Credit{}, err
	}
	if c.PaidAmount, err = decimal.NewFromString(paid); err != nil {
		return Credit{}, err
	}
	return c, nil
}
