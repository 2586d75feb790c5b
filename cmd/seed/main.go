// Command seed loads a deterministic demo dataset into Postgres for local
// development: a configurable number of spatial units with twelve weeks of
// daily signals, population figures, geography attributes, and monthly
// citywide baselines. One unit ("unit-007") gets a complaint spike in its
// final weeks so the anomaly path has something to flag.
//
// Usage:
//
//	go run ./cmd/seed -dsn "postgres://..." -units 20 -end 2025-03-01
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/livinglab/uci-engine/internal/domain"
	"github.com/livinglab/uci-engine/internal/store/postgres"
)

const historyDays = 12 * 7

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dsn := flag.String("dsn", os.Getenv("POSTGRES_DSN"), "postgres connection string")
	units := flag.Int("units", 20, "number of spatial units to generate")
	end := flag.String("end", "", "last day of generated history, YYYY-MM-DD (default: yesterday)")
	migrations := flag.String("migrations", "migrations", "migrations directory")
	flag.Parse()

	if *dsn == "" {
		flag.Usage()
		return fmt.Errorf("missing -dsn (or POSTGRES_DSN)")
	}
	if *end == "" {
		*end = domain.FormatDay(time.Now().AddDate(0, 0, -1))
	}
	endDay, err := domain.ParseDay(*end)
	if err != nil {
		return fmt.Errorf("invalid -end: %w", err)
	}

	ctx := context.Background()

	store, err := postgres.Connect(*dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RunMigrations(ctx, *migrations); err != nil {
		return err
	}

	citywideDaily := 0.0
	for i := 0; i < *units; i++ {
		unitID := fmt.Sprintf("unit-%03d", i)
		u := generateUnit(unitID, endDay, i)

		if err := store.RegisterUnit(ctx, unitID, fmt.Sprintf("demo district %d", i)); err != nil {
			return fmt.Errorf("register %s: %w", unitID, err)
		}
		if err := store.UpsertGeo(ctx, u.geo); err != nil {
			return fmt.Errorf("geo for %s: %w", unitID, err)
		}
		if err := store.InsertSignals(ctx, u.signals); err != nil {
			return err
		}
		if err := store.InsertPopulation(ctx, u.population); err != nil {
			return err
		}
		citywideDaily += u.dailyBase
	}

	// Monthly baselines covering the generated history.
	for _, period := range periodsCovering(endDay) {
		err := store.UpsertBaseline(ctx, domain.BaselineMetric{
			Period:             period,
			Category:           domain.BaselineCategoryOverall,
			CitywideTotal:      math.Round(citywideDaily * 30),
			CitywideAvgPerUnit: citywideDaily / float64(*units),
			GrowthRate:         0.02,
		})
		if err != nil {
			return fmt.Errorf("baseline %s: %w", period, err)
		}
	}

	fmt.Printf("seeded %d units, %d days ending %s\n", *units, historyDays, *end)
	return nil
}

type unitData struct {
	geo        domain.GeoAttributes
	signals    []domain.SignalRecord
	population []domain.PopulationRecord
	dailyBase  float64
}

// generateUnit derives a unit's whole history from a seeded RNG so repeated
// runs produce identical data.
func generateUnit(unitID string, end time.Time, ordinal int) unitData {
	rng := rand.New(rand.NewSource(int64(ordinal)))

	dailyBase := 2 + rng.Float64()*8
	nightRatio := 0.2 + rng.Float64()*0.3
	spiky := unitID == "unit-007"

	u := unitData{
		geo: domain.GeoAttributes{
			UnitID:             unitID,
			AlleyDensity:       rng.Float64() * 90,
			BackroadRatio:      rng.Float64() * 0.8,
			VentilationProxy:   rng.Float64() * 10,
			AccessibilityProxy: rng.Float64() * 10,
			LanduseMix:         rng.Float64(),
		},
		dailyBase: dailyBase,
	}

	for i := historyDays - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i)
		date := domain.FormatDay(day)

		complaints := dailyBase + 1.5*math.Sin(2*math.Pi*float64(day.Weekday())/7) + rng.NormFloat64()
		if spiky && i < 21 {
			complaints *= 4
		}
		complaints = math.Max(0, math.Round(complaints))

		u.signals = append(u.signals,
			domain.SignalRecord{UnitID: unitID, Date: date, SignalType: domain.SignalTotal, Value: complaints},
			domain.SignalRecord{UnitID: unitID, Date: date, SignalType: domain.SignalOdor, Value: math.Round(complaints * 0.3)},
			domain.SignalRecord{UnitID: unitID, Date: date, SignalType: domain.SignalTrash, Value: math.Round(complaints * 0.4)},
			domain.SignalRecord{UnitID: unitID, Date: date, SignalType: domain.SignalNightRatio, Value: nightRatio},
		)
		u.population = append(u.population, domain.PopulationRecord{
			UnitID:        unitID,
			Date:          date,
			PopTotal:      3000 + rng.Float64()*5000,
			PopNight:      1000 + rng.Float64()*2000,
			PopChangeRate: rng.NormFloat64() * 0.03,
		})
	}
	return u
}

// periodsCovering lists the YYYY-MM periods the generated history spans.
func periodsCovering(end time.Time) []string {
	seen := make(map[string]bool)
	var periods []string
	for i := 0; i < historyDays; i++ {
		p := domain.MonthOf(end.AddDate(0, 0, -i))
		if !seen[p] {
			seen[p] = true
			periods = append(periods, p)
		}
	}
	return periods
}
