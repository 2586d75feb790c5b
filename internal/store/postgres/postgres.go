// Package postgres persists signal data, computed indexes, and anomaly
// alerts in PostgreSQL. It implements the engine's store and sink
// interfaces over database/sql with the lib/pq driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/livinglab/uci-engine/internal/domain"
)

// Store wraps the database connection.
type Store struct {
	db *sql.DB
}

// Connect opens the database, verifies connectivity, and applies pool
// limits sized for the batch scorer's worker pool.
func Connect(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunMigrations executes every .sql file in the directory in name order.
// Migration files must be idempotent (CREATE TABLE IF NOT EXISTS).
func (s *Store) RunMigrations(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
	}
	return nil
}

// FetchSignals returns every daily signal for the unit in the inclusive
// date range, ordered by date then signal type.
func (s *Store) FetchSignals(ctx context.Context, unitID, from, to string) ([]domain.SignalRecord, error) {
	const query = `
		SELECT unit_id, to_char(date, 'YYYY-MM-DD'), signal_type, value, generated, confidence
		FROM signal_human
		WHERE unit_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, signal_type
	`
	rows, err := s.db.QueryContext(ctx, query, unitID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SignalRecord
	for rows.Next() {
		var r domain.SignalRecord
		if err := rows.Scan(&r.UnitID, &r.Date, &r.SignalType, &r.Value, &r.Generated, &r.Confidence); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// FetchGeo returns the unit's static geography attributes, or nil when the
// unit has none recorded.
func (s *Store) FetchGeo(ctx context.Context, unitID string) (*domain.GeoAttributes, error) {
	const query = `
		SELECT unit_id, alley_density, backroad_ratio, ventilation_proxy, accessibility_proxy, landuse_mix
		FROM signal_geo
		WHERE unit_id = $1
	`
	var g domain.GeoAttributes
	err := s.db.QueryRowContext(ctx, query, unitID).Scan(
		&g.UnitID, &g.AlleyDensity, &g.BackroadRatio,
		&g.VentilationProxy, &g.AccessibilityProxy, &g.LanduseMix,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// FetchPopulation returns the unit's daily population records in the
// inclusive date range.
func (s *Store) FetchPopulation(ctx context.Context, unitID, from, to string) ([]domain.PopulationRecord, error) {
	const query = `
		SELECT unit_id, to_char(date, 'YYYY-MM-DD'), pop_total, pop_night, pop_change_rate
		FROM signal_population
		WHERE unit_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`
	rows, err := s.db.QueryContext(ctx, query, unitID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.PopulationRecord
	for rows.Next() {
		var r domain.PopulationRecord
		if err := rows.Scan(&r.UnitID, &r.Date, &r.PopTotal, &r.PopNight, &r.PopChangeRate); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// FetchBaseline returns the citywide baseline for a period and category,
// or nil when none has been loaded.
func (s *Store) FetchBaseline(ctx context.Context, period, category string) (*domain.BaselineMetric, error) {
	const query = `
		SELECT period, category, citywide_total, citywide_avg_per_unit, growth_rate
		FROM baseline_metrics
		WHERE period = $1 AND category = $2
	`
	var b domain.BaselineMetric
	err := s.db.QueryRowContext(ctx, query, period, category).Scan(
		&b.Period, &b.Category, &b.CitywideTotal, &b.CitywideAvgPerUnit, &b.GrowthRate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListUnits returns every unit known to the store: registered spatial
// units plus any unit that has ever reported a signal.
func (s *Store) ListUnits(ctx context.Context) ([]string, error) {
	const query = `
		SELECT unit_id FROM spatial_units
		UNION
		SELECT DISTINCT unit_id FROM signal_human
		ORDER BY unit_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		units = append(units, id)
	}
	return units, rows.Err()
}

// SaveIndex upserts a computed comfort index. Re-scoring a unit and date
// replaces the previous row, keeping one authoritative result per day.
func (s *Store) SaveIndex(ctx context.Context, idx domain.ComputedIndex) error {
	components, err := json.Marshal(idx.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}
	explain, err := json.Marshal(idx.Explain)
	if err != nil {
		return fmt.Errorf("marshal explain: %w", err)
	}

	const query = `
		INSERT INTO computed_index (unit_id, date, score, grade, components, explain)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (unit_id, date) DO UPDATE
		SET score = EXCLUDED.score,
		    grade = EXCLUDED.grade,
		    components = EXCLUDED.components,
		    explain = EXCLUDED.explain,
		    computed_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, idx.UnitID, idx.Date, idx.Score, string(idx.Grade), components, explain); err != nil {
		return fmt.Errorf("save index for %s/%s: %w", idx.UnitID, idx.Date, err)
	}
	return nil
}

// SaveAlert upserts a flagged anomaly result.
func (s *Store) SaveAlert(ctx context.Context, res domain.AnomalyResult) error {
	features, err := json.Marshal(res.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	stats, err := json.Marshal(res.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	const query = `
		INSERT INTO anomaly_signals (unit_id, date, anomaly_score, anomaly_flag, features, stats, explanation)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (unit_id, date) DO UPDATE
		SET anomaly_score = EXCLUDED.anomaly_score,
		    anomaly_flag = EXCLUDED.anomaly_flag,
		    features = EXCLUDED.features,
		    stats = EXCLUDED.stats,
		    explanation = EXCLUDED.explanation,
		    detected_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, res.UnitID, res.Date, res.AnomalyScore, res.AnomalyFlag, features, stats, res.Explanation); err != nil {
		return fmt.Errorf("save alert for %s/%s: %w", res.UnitID, res.Date, err)
	}
	return nil
}

// InsertSignals bulk-inserts daily signal records inside one transaction,
// replacing any existing value for the same unit, date, and type.
func (s *Store) InsertSignals(ctx context.Context, records []domain.SignalRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO signal_human (unit_id, date, signal_type, value, generated, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (unit_id, date, signal_type) DO UPDATE
		SET value = EXCLUDED.value,
		    generated = EXCLUDED.generated,
		    confidence = EXCLUDED.confidence
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare signal insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.UnitID, r.Date, string(r.SignalType), r.Value, r.Generated, r.Confidence); err != nil {
			return fmt.Errorf("insert signal %s/%s/%s: %w", r.UnitID, r.Date, r.SignalType, err)
		}
	}
	return tx.Commit()
}

// InsertPopulation bulk-inserts daily population records inside one
// transaction, replacing existing rows for the same unit and date.
func (s *Store) InsertPopulation(ctx context.Context, records []domain.PopulationRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO signal_population (unit_id, date, pop_total, pop_night, pop_change_rate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (unit_id, date) DO UPDATE
		SET pop_total = EXCLUDED.pop_total,
		    pop_night = EXCLUDED.pop_night,
		    pop_change_rate = EXCLUDED.pop_change_rate
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare population insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.UnitID, r.Date, r.PopTotal, r.PopNight, r.PopChangeRate); err != nil {
			return fmt.Errorf("insert population %s/%s: %w", r.UnitID, r.Date, err)
		}
	}
	return tx.Commit()
}

// UpsertBaseline inserts or updates a citywide baseline metric.
func (s *Store) UpsertBaseline(ctx context.Context, b domain.BaselineMetric) error {
	const query = `
		INSERT INTO baseline_metrics (period, category, citywide_total, citywide_avg_per_unit, growth_rate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (period, category) DO UPDATE
		SET citywide_total = EXCLUDED.citywide_total,
		    citywide_avg_per_unit = EXCLUDED.citywide_avg_per_unit,
		    growth_rate = EXCLUDED.growth_rate
	`
	_, err := s.db.ExecContext(ctx, query, b.Period, b.Category, b.CitywideTotal, b.CitywideAvgPerUnit, b.GrowthRate)
	return err
}

// RegisterUnit records a spatial unit so it is batch-scored even before
// its first signal arrives.
func (s *Store) RegisterUnit(ctx context.Context, unitID, name string) error {
	const query = `
		INSERT INTO spatial_units (unit_id, name)
		VALUES ($1, $2)
		ON CONFLICT (unit_id) DO UPDATE SET name = EXCLUDED.name
	`
	_, err := s.db.ExecContext(ctx, query, unitID, name)
	return err
}

// UpsertGeo inserts or updates a unit's geography attributes.
func (s *Store) UpsertGeo(ctx context.Context, g domain.GeoAttributes) error {
	const query = `
		INSERT INTO signal_geo (unit_id, alley_density, backroad_ratio, ventilation_proxy, accessibility_proxy, landuse_mix)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (unit_id) DO UPDATE
		SET alley_density = EXCLUDED.alley_density,
		    backroad_ratio = EXCLUDED.backroad_ratio,
		    ventilation_proxy = EXCLUDED.ventilation_proxy,
		    accessibility_proxy = EXCLUDED.accessibility_proxy,
		    landuse_mix = EXCLUDED.landuse_mix,
		    updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.ExecContext(ctx, query,
		g.UnitID, g.AlleyDensity, g.BackroadRatio, g.VentilationProxy, g.AccessibilityProxy, g.LanduseMix)
	return err
}
