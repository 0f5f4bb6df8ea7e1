package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	masterdataapp "cng-console/internal/masterdata/application"
	masterdatarepo "cng-console/internal/masterdata/infrastructure/postgres"
	settlementadapters "cng-console/internal/settlement/adapters/masterdata"
	settlementapp "cng-console/internal/settlement/application"
	settlement "cng-console/internal/settlement/domain"
	settlementrepo "cng-console/internal/settlement/infrastructure/postgres"
)

type config struct {
	dbURL string
	from  string
	to    string
	out   string
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	db, err := sql.Open("pgx", cfg.dbURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db open:", err)
		os.Exit(2)
	}
	defer db.Close()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	stations, err := masterdataapp.NewStationService(masterdatarepo.NewStationRepository(db), nil, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "station service:", err)
		os.Exit(2)
	}
	directory, err := settlementadapters.NewStationDirectory(stations)
	if err != nil {
		fmt.Fprintln(os.Stderr, "station directory:", err)
		os.Exit(2)
	}
	service, err := settlementapp.NewPeriodService(
		settlementrepo.NewSettlementRepository(db),
		directory,
		settlementapp.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "period service:", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	breaks, err := service.CheckContinuity(ctx, settlement.Period(cfg.from), settlement.Period(cfg.to))
	if err != nil {
		fmt.Fprintln(os.Stderr, "check continuity:", err)
		os.Exit(2)
	}

	if cfg.out == "" || cfg.out == "-" {
		if err := writeBreaks(os.Stdout, breaks); err != nil {
			fmt.Fprintln(os.Stderr, "write breaks:", err)
			os.Exit(2)
		}
	} else {
		if err := writeBreaksFile(cfg.out, breaks); err != nil {
			fmt.Fprintln(os.Stderr, "write breaks:", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Continuity report written to %s (%d breaks)\n", cfg.out, len(breaks))
	}
	if len(breaks) > 0 {
		os.Exit(1)
	}
}

func parseFlags() (config, error) {
	var cfg config
	flag.StringVar(&cfg.dbURL, "db", getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")), "Postgres DSN")
	flag.StringVar(&cfg.from, "from", "", "first period in YYYY-MM")
	flag.StringVar(&cfg.to, "to", "", "last period in YYYY-MM (defaults to -from)")
	flag.StringVar(&cfg.out, "out", "", "output CSV path, stdout when empty")
	flag.Parse()

	if cfg.dbURL == "" {
		return cfg, errors.New("db is required (flag -db or DATABASE_URL/PG_DSN)")
	}
	if cfg.from == "" {
		return cfg, errors.New("from is required")
	}
	if cfg.to == "" {
		cfg.to = cfg.from
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func writeBreaksFile(path string, breaks []settlement.ContinuityBreak) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeBreaks(file, breaks); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeBreaks(w io.Writer, breaks []settlement.ContinuityBreak) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{
		"station_id",
		"station_name",
		"period",
		"prior_end_balance",
		"start_balance",
		"delta",
	}); err != nil {
		return err
	}
	for _, b := range breaks {
		if err := writer.Write([]string{
			b.StationID,
			b.StationName,
			b.Period.String(),
			formatFloat(b.PriorEnd),
			formatFloat(b.StartBalance),
			formatFloat(b.Delta),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
