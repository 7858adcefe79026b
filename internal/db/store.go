package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"train-route-analyzer/internal/analysis"
)

// ErrNotFound is returned when no details are stored for a route.
var ErrNotFound = errors.New("route details not found")

// Details is the persisted summary of one analyzed route.
type Details struct {
	ID           int64     `json:"id"`
	Ref          string    `json:"ref"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Operator     string    `json:"operator"`
	Length       float64   `json:"length"`    // km
	TravelTime   float64   `json:"time"`      // minutes
	AverageSpeed float64   `json:"ave_speed"` // km/h
	MaxSpeed     float64   `json:"max_speed"` // km/h
	Train        string    `json:"train"`
	UpdatedAt    time.Time `json:"date"`
}

// DetailsFromResult rounds the result the way it is shown to users.
func DetailsFromResult(res analysis.Result, now time.Time) Details {
	return Details{
		ID:           int64(res.RouteID),
		Ref:          res.Ref,
		From:         res.From,
		To:           res.To,
		Operator:     res.Operator,
		Length:       round(res.Distance, 1),
		TravelTime:   math.Round(res.Stats.TravelTime),
		AverageSpeed: round(res.Stats.AverageSpeed, 1),
		MaxSpeed:     math.Round(res.Stats.MaxSpeed),
		Train:        res.Train.Ref,
		UpdatedAt:    now.UTC(),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

const schema = `
CREATE TABLE IF NOT EXISTS osm_train_details (
  id          BIGINT PRIMARY KEY,
  ref         TEXT NOT NULL DEFAULT '',
  "from"      TEXT NOT NULL DEFAULT '',
  "to"        TEXT NOT NULL DEFAULT '',
  operator    TEXT NOT NULL DEFAULT '',
  length      DOUBLE PRECISION NOT NULL,
  time        DOUBLE PRECISION NOT NULL,
  ave_speed   DOUBLE PRECISION NOT NULL,
  max_speed   DOUBLE PRECISION NOT NULL,
  train       TEXT NOT NULL,
  date        TIMESTAMPTZ NOT NULL
)`

type Store struct {
	db Querier
}

func NewStore(db Querier) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create osm_train_details: %w", err)
	}
	return nil
}

// Upsert stores d, replacing an existing row for the same route.
func (s *Store) Upsert(ctx context.Context, d Details) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO osm_train_details (id, ref, "from", "to", operator, length, time, ave_speed, max_speed, train, date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
		  ref=EXCLUDED.ref, "from"=EXCLUDED."from", "to"=EXCLUDED."to", operator=EXCLUDED.operator,
		  length=EXCLUDED.length, time=EXCLUDED.time, ave_speed=EXCLUDED.ave_speed,
		  max_speed=EXCLUDED.max_speed, train=EXCLUDED.train, date=EXCLUDED.date
	`, d.ID, d.Ref, d.From, d.To, d.Operator, d.Length, d.TravelTime, d.AverageSpeed, d.MaxSpeed, d.Train, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert route %d: %w", d.ID, err)
	}
	return nil
}

// Delete removes the row of a route that turned out not to be a rail route.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM osm_train_details WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete route %d: %w", id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (Details, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, ref, "from", "to", operator, length, time, ave_speed, max_speed, train, date
		FROM osm_train_details WHERE id=$1
	`, id)
	var d Details
	err := row.Scan(&d.ID, &d.Ref, &d.From, &d.To, &d.Operator, &d.Length, &d.TravelTime, &d.AverageSpeed, &d.MaxSpeed, &d.Train, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Details{}, ErrNotFound
	}
	if err != nil {
		return Details{}, fmt.Errorf("get route %d: %w", id, err)
	}
	return d, nil
}

// Stale lists routes last analyzed before cutoff, oldest first.
func (s *Store) Stale(ctx context.Context, cutoff time.Time, limit int) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id FROM osm_train_details WHERE date < $1 ORDER BY date ASC LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale routes: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
