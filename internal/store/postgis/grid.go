package postgis

import (
	"context"
	"fmt"
	"time"

	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/jackc/pgx/v5"
)

// InsertCells runs a single bulk-insert transaction for the chunk, per spec
// §4.1's "one transaction per chunk_size rows" contract. An empty chunk is a
// no-op.
func (s *Store) InsertCells(ctx context.Context, cells []models.PollutionGridCell) error {
	if len(cells) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgis: begin insert cells: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range cells {
		batch.Queue(
			`INSERT INTO pollution_grid ("timestamp", gas_type, geom, pollution_value, severity_level)
			 VALUES ($1, $2, ST_SetSRID(ST_GeomFromText($3), 4326), $4, $5)`,
			c.Timestamp, string(c.GasType), c.GeomWKT, c.PollutionValue, c.SeverityLevel,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range cells {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("postgis: insert cell: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgis: close batch: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) LatestTimestamp(ctx context.Context, gas domain.GasType) (time.Time, error) {
	var ts time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX("timestamp"), to_timestamp(0)) FROM pollution_grid WHERE gas_type = $1`,
		string(gas),
	).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("postgis: latest timestamp: %w", err)
	}
	return ts, nil
}

func (s *Store) CellsInWindow(ctx context.Context, gas domain.GasType, start, end time.Time) ([]models.PollutionGridCell, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, "timestamp", gas_type, ST_AsText(geom), pollution_value, severity_level, created_at
		 FROM pollution_grid
		 WHERE gas_type = $1 AND "timestamp" BETWEEN $2 AND $3
		 ORDER BY "timestamp"`,
		string(gas), start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("postgis: cells in window: %w", err)
	}
	defer rows.Close()

	var out []models.PollutionGridCell
	for rows.Next() {
		var c models.PollutionGridCell
		var gasType string
		if err := rows.Scan(&c.ID, &c.Timestamp, &gasType, &c.GeomWKT, &c.PollutionValue, &c.SeverityLevel, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgis: scan cell: %w", err)
		}
		c.GasType = domain.GasType(gasType)
		out = append(out, c)
	}
	return out, rows.Err()
}
