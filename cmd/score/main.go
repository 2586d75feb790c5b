// Command score computes analytics for a single unit and prints the
// result as indented JSON. It reads from Postgres via -dsn, or from a
// seeded in-memory store with -demo for a dependency-free smoke run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/livinglab/uci-engine/internal/domain"
	"github.com/livinglab/uci-engine/internal/engine"
	"github.com/livinglab/uci-engine/internal/observability"
	"github.com/livinglab/uci-engine/internal/store/memory"
	"github.com/livinglab/uci-engine/internal/store/postgres"
)

func main() {
	var (
		unitID  = flag.String("unit", "", "spatial unit to score (required)")
		date    = flag.String("date", "", "reference date, YYYY-MM-DD (required)")
		window  = flag.Int("window", 4, "scoring window in weeks")
		anomaly = flag.Bool("anomaly", false, "also run anomaly detection")
		trend   = flag.Bool("trend", false, "also run trend forecasting")
		dsn     = flag.String("dsn", os.Getenv("POSTGRES_DSN"), "postgres connection string")
		demo    = flag.Bool("demo", false, "use a seeded in-memory store instead of postgres")
	)
	flag.Parse()

	if *unitID == "" || *date == "" {
		fmt.Fprintln(os.Stderr, "usage: score -unit <id> -date <YYYY-MM-DD> [-window N] [-anomaly] [-trend] [-dsn ...|-demo]")
		os.Exit(1)
	}
	if _, err := domain.ParseDay(*date); err != nil {
		fatal("invalid -date: %v", err)
	}

	ctx := context.Background()

	var store engine.Store
	switch {
	case *demo:
		store = demoStore(*unitID, *date)
	case *dsn != "":
		pg, err := postgres.Connect(*dsn)
		if err != nil {
			fatal("postgres connect: %v", err)
		}
		defer pg.Close()
		store = pg
	default:
		fatal("either -dsn (or POSTGRES_DSN) or -demo is required")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := engine.New(store, logger, observability.NewMetricsForTesting(), engine.Options{})

	out := make(map[string]any)

	idx, err := e.ComputeIndex(ctx, *unitID, *date, *window, false)
	if err != nil {
		fatal("compute index: %v", err)
	}
	if idx == nil {
		fmt.Fprintf(os.Stderr, "no signal data for unit %s in the %d-week window ending %s\n", *unitID, *window, *date)
		os.Exit(0)
	}
	out["index"] = idx

	if *anomaly {
		res, err := e.DetectAnomaly(ctx, *unitID, *date, *window, 3**window)
		if err != nil {
			fatal("detect anomaly: %v", err)
		}
		out["anomaly"] = res
	}

	if *trend {
		res, err := e.ComplaintTrend(ctx, *unitID, *date, engine.DefaultLookbackDays, 7)
		if err != nil {
			fatal("forecast trend: %v", err)
		}
		out["trend"] = res
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatal("encode output: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// demoStore seeds twelve weeks of synthetic-looking history for the
// requested unit: a gentle upward complaint drift with a weekly cycle,
// plus geo, population, and a citywide baseline.
func demoStore(unitID, date string) *memory.Store {
	store := memory.New()

	end, err := domain.ParseDay(date)
	if err != nil {
		return store
	}

	const days = 12 * 7
	for i := 0; i < days; i++ {
		day := end.AddDate(0, 0, -i)
		age := float64(days - i)

		complaints := 4 + age*0.05 + 2*math.Sin(2*math.Pi*float64(day.Weekday())/7)
		store.AddSignals(
			domain.SignalRecord{UnitID: unitID, Date: domain.FormatDay(day), SignalType: domain.SignalTotal, Value: math.Max(0, complaints)},
			domain.SignalRecord{UnitID: unitID, Date: domain.FormatDay(day), SignalType: domain.SignalOdor, Value: 1},
			domain.SignalRecord{UnitID: unitID, Date: domain.FormatDay(day), SignalType: domain.SignalNightRatio, Value: 0.35},
		)
		store.AddPopulation(domain.PopulationRecord{
			UnitID: unitID, Date: domain.FormatDay(day),
			PopTotal: 5200, PopNight: 1900, PopChangeRate: 0.04,
		})
	}

	store.SetGeo(domain.GeoAttributes{
		UnitID: unitID, AlleyDensity: 45, BackroadRatio: 0.35,
		VentilationProxy: 5, AccessibilityProxy: 4, LanduseMix: 0.6,
	})
	store.SetBaseline(domain.BaselineMetric{
		Period: domain.MonthOf(end), Category: domain.BaselineCategoryOverall,
		CitywideTotal: 4100, CitywideAvgPerUnit: 5.5, GrowthRate: 0.02,
	})
	return store
}
