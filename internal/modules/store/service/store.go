package service

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"signal_bot/internal/models"
	"signal_bot/pkg/db"
)

// PgStore — персистентность сигналов поверх PgTxManager.
// Мутации идут через RunMaster, чтение — согласованное, с мастера.
type PgStore struct {
	tx *db.PgTxManager
}

func NewPgStore(tx *db.PgTxManager) *PgStore {
	return &PgStore{tx: tx}
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS signals (
	id            text PRIMARY KEY,
	strategy_id   text NOT NULL,
	instrument    text NOT NULL,
	direction     text NOT NULL,
	product_type  text NOT NULL,
	strike        double precision NOT NULL,
	expiry        timestamptz NOT NULL,
	lot_size      integer NOT NULL,
	entry_price   double precision NOT NULL,
	current_price double precision NOT NULL DEFAULT 0,
	stop_loss     double precision NOT NULL,
	target1       double precision NOT NULL,
	target2       double precision NOT NULL,
	target3       double precision NOT NULL,
	trailing_stop double precision NOT NULL DEFAULT 0,
	confidence    double precision NOT NULL,
	reason        text NOT NULL DEFAULT '',
	status        text NOT NULL,
	pnl           double precision NOT NULL DEFAULT 0,
	pnl_rs        double precision NOT NULL DEFAULT 0,
	exit_price    double precision NOT NULL DEFAULT 0,
	exit_reason   text NOT NULL DEFAULT '',
	created_at    timestamptz NOT NULL,
	closed_at     timestamptz
);
CREATE INDEX IF NOT EXISTS signals_status_idx ON signals (status);
`

// Init — идемпотентная миграция схемы на старте.
func (p *PgStore) Init(ctx context.Context) error {
	return p.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctxTx, schemaDDL); err != nil {
			return errors.Wrap(err, "signals schema")
		}
		return nil
	})
}

func (p *PgStore) Create(ctx context.Context, s *models.Signal) error {
	const q = `
INSERT INTO signals (
	id, strategy_id, instrument, direction, product_type, strike, expiry, lot_size,
	entry_price, current_price, stop_loss, target1, target2, target3, trailing_stop,
	confidence, reason, status, pnl, pnl_rs, exit_price, exit_reason, created_at, closed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`

	return p.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, q,
			s.ID, s.StrategyID, s.Instrument, string(s.Direction), string(s.Product),
			s.Strike, s.Expiry, s.LotSize,
			s.EntryPrice, s.CurrentPrice, s.StopLoss, s.Target1, s.Target2, s.Target3, s.TrailingStop,
			s.Confidence, s.Reason, string(s.Status), s.PnL, s.PnLMoney,
			s.ExitPrice, s.ExitReason, s.CreatedAt, s.ClosedAt,
		)
		return errors.Wrap(err, "insert signal")
	})
}

func (p *PgStore) Update(ctx context.Context, s *models.Signal) error {
	const q = `
UPDATE signals SET
	current_price = $2, trailing_stop = $3, status = $4,
	pnl = $5, pnl_rs = $6, exit_price = $7, exit_reason = $8, closed_at = $9
WHERE id = $1`

	return p.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctxTx, q,
			s.ID, s.CurrentPrice, s.TrailingStop, string(s.Status),
			s.PnL, s.PnLMoney, s.ExitPrice, s.ExitReason, s.ClosedAt,
		)
		if err != nil {
			return errors.Wrap(err, "update signal")
		}
		if tag.RowsAffected() == 0 {
			return errors.Errorf("signal %s not found", s.ID)
		}
		return nil
	})
}

const selectCols = `
	id, strategy_id, instrument, direction, product_type, strike, expiry, lot_size,
	entry_price, current_price, stop_loss, target1, target2, target3, trailing_stop,
	confidence, reason, status, pnl, pnl_rs, exit_price, exit_reason, created_at, closed_at`

func (p *PgStore) ListActive(ctx context.Context) ([]*models.Signal, error) {
	q := `SELECT` + selectCols + ` FROM signals WHERE status = 'active' ORDER BY created_at`

	var out []*models.Signal
	err := p.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx, q)
		if err != nil {
			return errors.Wrap(err, "query active signals")
		}
		defer rows.Close()

		for rows.Next() {
			s, err := scanSignal(rows)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	return out, err
}

func (p *PgStore) Get(ctx context.Context, id string) (*models.Signal, error) {
	q := `SELECT` + selectCols + ` FROM signals WHERE id = $1`

	var s *models.Signal
	err := p.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		var err error
		s, err = scanSignal(tx.QueryRow(ctxTx, q, id))
		return err
	})
	return s, err
}

func scanSignal(row pgx.Row) (*models.Signal, error) {
	var (
		s         models.Signal
		direction string
		product   string
		status    string
		closedAt  sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.StrategyID, &s.Instrument, &direction, &product, &s.Strike, &s.Expiry, &s.LotSize,
		&s.EntryPrice, &s.CurrentPrice, &s.StopLoss, &s.Target1, &s.Target2, &s.Target3, &s.TrailingStop,
		&s.Confidence, &s.Reason, &status, &s.PnL, &s.PnLMoney,
		&s.ExitPrice, &s.ExitReason, &s.CreatedAt, &closedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "scan signal")
	}
	s.Direction = models.Direction(direction)
	s.Product = models.ProductType(product)
	s.Status = models.SignalStatus(status)
	if closedAt.Valid {
		t := closedAt.Time
		s.ClosedAt = &t
	}
	return &s, nil
}
