// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package store keeps the history of route checks in DuckDB.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jcodagnone/trafficmap/spatial"
	"github.com/jcodagnone/trafficmap/traffic"
	"github.com/jcodagnone/trafficmap/utils/textutils"
)

// OriginCellResolution is the H3 resolution used to bucket route origins.
const OriginCellResolution = 8

// Record is a stored route status.
type Record struct {
	traffic.RouteStatus
	OriginCell int64 `json:"origin_cell,omitempty"`
}

// Summary aggregates the history of a route. The durations are
// traffic.NoDuration when no check of the route succeeded.
type Summary struct {
	Route          string                `json:"route"`
	Checks         int                   `json:"checks"`
	Levels         map[traffic.Level]int `json:"levels"`
	AvgDurationSec float64               `json:"avg_duration_sec"`
	MinDurationSec int                   `json:"min_duration_sec"`
	MaxDurationSec int                   `json:"max_duration_sec"`
	Since          time.Time             `json:"since"`
}

// StatusRepository handles the persistence of route statuses.
type StatusRepository interface {
	CreateSchema() error
	SaveStatuses(statuses []traffic.RouteStatus, origins map[string]spatial.Point) error
	Latest() ([]Record, error)
	History(route string, limit int) ([]Record, error)
	Summary(route string) (*Summary, error)
}

type sqlStatusRepository struct {
	db *sql.DB
}

// NewStatusRepository creates a new status repository.
func NewStatusRepository(db *sql.DB) StatusRepository {
	return &sqlStatusRepository{db: db}
}

func (r *sqlStatusRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS route_status_seq START 1;

		CREATE TABLE IF NOT EXISTS route_status (
			id INTEGER PRIMARY KEY DEFAULT nextval('route_status_seq'),
			route VARCHAR NOT NULL,
			slug VARCHAR NOT NULL,
			level TINYINT NOT NULL,
			duration_sec INTEGER,
			distance_meters INTEGER,
			error VARCHAR,
			origin_h3 BIGINT,
			checked_at TIMESTAMP NOT NULL
		);
	`)

	return err
}

// SaveStatuses stores a round of checks. origins, keyed by route name, is used
// to tag each row with the H3 cell of the route origin.
func (r *sqlStatusRepository) SaveStatuses(statuses []traffic.RouteStatus, origins map[string]spatial.Point) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO route_status (
			route, slug, level, duration_sec, distance_meters, error, origin_h3, checked_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range statuses {
		var (
			duration, distance sql.NullInt64
			errText            sql.NullString
			cell               sql.NullInt64
		)

		if s.Level != traffic.LevelError {
			duration = sql.NullInt64{Int64: int64(s.DurationSec), Valid: true}
			distance = sql.NullInt64{Int64: int64(s.DistanceMeters), Valid: s.DistanceMeters > 0}
		}

		if s.Error != "" {
			errText = sql.NullString{String: s.Error, Valid: true}
		}

		if p, ok := origins[s.Name]; ok {
			c, err := p.Cell(OriginCellResolution)
			if err != nil {
				_ = tx.Rollback()

				return err
			}

			cell = sql.NullInt64{Int64: c, Valid: true}
		}

		if _, err := stmt.Exec(
			s.Name,
			textutils.Slug(s.Name),
			int(s.Level),
			duration,
			distance,
			errText,
			cell,
			s.CheckedAt.UTC(),
		); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("saving status of %q: %w", s.Name, err)
		}
	}

	return tx.Commit()
}

const recordColumns = `route, level, duration_sec, distance_meters, error, origin_h3, checked_at`

func (r *sqlStatusRepository) list(query string, args ...any) ([]Record, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		var (
			rec                Record
			level              int
			duration, distance sql.NullInt64
			errText            sql.NullString
			cell               sql.NullInt64
		)

		if err := rows.Scan(
			&rec.Name, &level, &duration, &distance, &errText, &cell, &rec.CheckedAt,
		); err != nil {
			return nil, err
		}

		rec.Level = traffic.Level(level)
		rec.DurationSec = traffic.NoDuration

		if duration.Valid {
			rec.DurationSec = int(duration.Int64)
		}

		if distance.Valid {
			rec.DistanceMeters = int(distance.Int64)
		}

		if errText.Valid {
			rec.Error = errText.String
		}

		if cell.Valid {
			rec.OriginCell = cell.Int64
		}

		rec.CheckedAt = rec.CheckedAt.UTC()

		records = append(records, rec)
	}

	return records, rows.Err()
}

// Latest returns the most recent status of every route, ordered by route.
func (r *sqlStatusRepository) Latest() ([]Record, error) {
	return r.list(`
		SELECT ` + recordColumns + `
		FROM route_status
		QUALIFY row_number() OVER (PARTITION BY slug ORDER BY checked_at DESC, id DESC) = 1
		ORDER BY route
	`)
}

// History returns the statuses of a route, newest first. limit <= 0 returns all.
func (r *sqlStatusRepository) History(route string, limit int) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM route_status
		WHERE slug = ?
		ORDER BY checked_at DESC, id DESC
	`
	args := []any{textutils.Slug(route)}

	if limit > 0 {
		query += " LIMIT ?"

		args = append(args, limit)
	}

	return r.list(query, args...)
}

// Summary aggregates every check of a route. It returns sql.ErrNoRows when the
// route was never checked.
func (r *sqlStatusRepository) Summary(route string) (*Summary, error) {
	slug := textutils.Slug(route)

	s := &Summary{Levels: make(map[traffic.Level]int)}

	var (
		avg    sql.NullFloat64
		minDur sql.NullInt64
		maxDur sql.NullInt64
		since  sql.NullTime
		name   sql.NullString
	)

	err := r.db.QueryRow(`
		SELECT any_value(route), count(*), avg(duration_sec), min(duration_sec), max(duration_sec), min(checked_at)
		FROM route_status
		WHERE slug = ?
	`, slug).Scan(&name, &s.Checks, &avg, &minDur, &maxDur, &since)
	if err != nil {
		return nil, err
	}

	if s.Checks == 0 {
		return nil, sql.ErrNoRows
	}

	s.Route = name.String
	s.AvgDurationSec = traffic.NoDuration
	s.MinDurationSec = traffic.NoDuration
	s.MaxDurationSec = traffic.NoDuration

	// all NULL when every check failed
	if avg.Valid {
		s.AvgDurationSec = avg.Float64
		s.MinDurationSec = int(minDur.Int64)
		s.MaxDurationSec = int(maxDur.Int64)
	}
	s.Since = since.Time.UTC()

	rows, err := r.db.Query(`SELECT level, count(*) FROM route_status WHERE slug = ? GROUP BY level`, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var level, count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}

		s.Levels[traffic.Level(level)] = count
	}

	return s, rows.Err()
}
