package md

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/jmoiron/sqlx"
)

const (
	_queryCandles = `SELECT ticker, ts, open_price, high_price, low_price, close_price, volume
						FROM candles
						WHERE ticker = $1 AND ts BETWEEN $2::timestamptz AND $3::timestamptz
						ORDER BY ts`
	_upsertCandle = `INSERT INTO candles (
								ticker,
								ts,
								open_price,
								high_price,
								low_price,
								close_price,
								volume
							) VALUES (:ticker, :ts, :open_price, :high_price, :low_price, :close_price, :volume)
							ON CONFLICT (ticker, ts)
							DO UPDATE SET
								open_price = EXCLUDED.open_price,
								high_price = EXCLUDED.high_price,
								low_price = EXCLUDED.low_price,
								close_price = EXCLUDED.close_price,
								volume = EXCLUDED.volume;`
)

type DBStore struct {
	db *sqlx.DB
}

func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) GetCandles(ctx context.Context, ticker string, from, to time.Time) ([]model.Candle, error) {
	var candles []model.Candle
	if err := s.db.SelectContext(ctx, &candles, _queryCandles, ticker, from, to); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: can't get candles from database", err)
	}
	return candles, nil
}

func (s *DBStore) SaveCandles(ctx context.Context, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: can't begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, _upsertCandle)
	if err != nil {
		return fmt.Errorf("%w: can't prepare candles upsert", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c); err != nil {
			return fmt.Errorf("%w: can't upsert candle %s %s", err, c.Ticker, c.Ts)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: can't commit candles", err)
	}
	return nil
}
