package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	masterdataapp "cng-console/internal/masterdata/application"
	masterdata "cng-console/internal/masterdata/domain"
	masterdatarepo "cng-console/internal/masterdata/infrastructure/postgres"
	settlementadapters "cng-console/internal/settlement/adapters/masterdata"
	settlementapp "cng-console/internal/settlement/application"
	settlement "cng-console/internal/settlement/domain"
	settlementrepo "cng-console/internal/settlement/infrastructure/postgres"
)

type config struct {
	dsn           string
	stationPrefix string
	stationCount  int
	region        string
	startPeriod   string
	periods       int
	randomSeed    int64
}

func main() {
	cfg := parseConfig()
	if cfg.dsn == "" {
		log.Fatal("PG_DSN or DATABASE_URL is required")
	}
	if cfg.stationCount <= 0 {
		log.Fatal("station-count must be > 0")
	}
	if cfg.periods <= 0 {
		log.Fatal("periods must be > 0")
	}
	start, err := parseStartPeriod(cfg.startPeriod, cfg.periods)
	if err != nil {
		log.Fatalf("invalid start-period: %v", err)
	}

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	logger := log.Default()

	stations, err := masterdataapp.NewStationService(masterdatarepo.NewStationRepository(db), nil, logger)
	if err != nil {
		log.Fatalf("station service: %v", err)
	}
	stationIDs := buildStationIDs(cfg.stationPrefix, cfg.stationCount)
	log.Printf("seeding stations: count=%d prefix=%s", cfg.stationCount, cfg.stationPrefix)
	for i, id := range stationIDs {
		station := &masterdata.Station{
			ID:       id,
			Name:     fmt.Sprintf("CNG Station %02d", i+1),
			Timezone: "Asia/Shanghai",
			Region:   cfg.region,
			Active:   true,
		}
		if err := stations.UpsertStation(ctx, station); err != nil {
			log.Fatalf("seed station %s: %v", id, err)
		}
	}

	directory, err := settlementadapters.NewStationDirectory(stations)
	if err != nil {
		log.Fatalf("station directory: %v", err)
	}
	service, err := settlementapp.NewPeriodService(
		settlementrepo.NewSettlementRepository(db),
		directory,
		settlementapp.WithLogger(logger),
		settlementapp.WithWriteLimit(8),
	)
	if err != nil {
		log.Fatalf("period service: %v", err)
	}

	rng := rand.New(rand.NewSource(cfg.randomSeed))
	period := start
	for i := 0; i < cfg.periods; i++ {
		edits := buildEdits(rng, stationIDs, i == 0)
		if _, _, err := service.Save(ctx, period, stationIDs, edits); err != nil {
			log.Fatalf("seed period %s: %v", period, err)
		}
		log.Printf("seeded period: period=%s stations=%d edits=%d", period, len(stationIDs), len(edits))
		period = period.Next()
	}

	log.Printf("seed completed")
}

func parseConfig() config {
	var cfg config
	flag.StringVar(&cfg.dsn, "pg-dsn", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	flag.StringVar(&cfg.stationPrefix, "station-prefix", envOrDefault("STATION_PREFIX", "cng-demo-"), "station id prefix")
	flag.IntVar(&cfg.stationCount, "station-count", envOrInt("STATION_COUNT", 5), "number of stations to seed")
	flag.StringVar(&cfg.region, "region", envOrDefault("STATION_REGION", "demo"), "station region")
	flag.StringVar(&cfg.startPeriod, "start-period", envOrDefault("START_PERIOD", ""), "first period in YYYY-MM, defaults to periods before the current month")
	flag.IntVar(&cfg.periods, "periods", envOrInt("PERIODS", 6), "number of consecutive periods to seed")
	flag.Int64Var(&cfg.randomSeed, "seed", int64(envOrInt("RANDOM_SEED", 1)), "random seed for generated inputs")
	flag.Parse()
	return cfg
}

func parseStartPeriod(value string, periods int) (settlement.Period, error) {
	if strings.TrimSpace(value) == "" {
		current := settlement.PeriodOf(time.Now().UTC())
		for i := 0; i < periods; i++ {
			current = current.Previous()
		}
		return current, nil
	}
	return settlement.ParsePeriod(value)
}

func buildStationIDs(prefix string, count int) []string {
	ids := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		ids = append(ids, fmt.Sprintf("%s%03d", prefix, i))
	}
	return ids
}

// buildEdits generates one period of inputs per station. Opening balances
// are only set on the first seeded period; later periods carry forward.
func buildEdits(rng *rand.Rand, stationIDs []string, opening bool) []settlement.Edit {
	edits := make([]settlement.Edit, 0, len(stationIDs)*4)
	for _, id := range stationIDs {
		volume := 20000 + rng.Float64()*30000
		price := 3.2 + rng.Float64()*0.8
		paid := volume * price * (0.85 + rng.Float64()*0.3)
		if opening {
			edits = append(edits, settlement.Edit{StationID: id, Field: settlement.FieldStartBalance, Value: round2(rng.Float64() * 50000)})
		}
		edits = append(edits,
			settlement.Edit{StationID: id, Field: settlement.FieldGasPrice, Value: round2(price)},
			settlement.Edit{StationID: id, Field: settlement.FieldTotalAccruedM3, Value: round2(volume)},
			settlement.Edit{StationID: id, Field: settlement.FieldPaid, Value: round2(paid)},
		)
	}
	return edits
}

func round2(value float64) settlement.Amount {
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(value, 'f', 2, 64), 64)
	return settlement.Amount(rounded)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
