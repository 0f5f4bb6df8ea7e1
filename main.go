package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cng-console/internal/audit"
	"cng-console/internal/auth"
	"cng-console/internal/blob"
	"cng-console/internal/config"
	masterdataapp "cng-console/internal/masterdata/application"
	masterdata "cng-console/internal/masterdata/domain"
	stationcache "cng-console/internal/masterdata/infrastructure/cache"
	masterdatamemory "cng-console/internal/masterdata/infrastructure/memory"
	masterdatarepo "cng-console/internal/masterdata/infrastructure/postgres"
	"cng-console/internal/observability/metrics"
	settlementadapters "cng-console/internal/settlement/adapters/masterdata"
	settlementapp "cng-console/internal/settlement/application"
	settlement "cng-console/internal/settlement/domain"
	settlementmemory "cng-console/internal/settlement/infrastructure/memory"
	settlementrepo "cng-console/internal/settlement/infrastructure/postgres"
	settlementinterfaces "cng-console/internal/settlement/interfaces"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	var (
		db            *sql.DB
		settlements   settlement.Repository
		stationRepo   masterdata.StationRepository
		auditLogger   audit.Logger
		healthChecker = func(context.Context) error { return nil }
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		settlements = settlementrepo.NewSettlementRepository(db, settlementrepo.WithOptimisticLock(cfg.OptimisticLock))
		stationRepo = masterdatarepo.NewStationRepository(db)
		auditLogger = audit.NewRepository(db)
		healthChecker = db.PingContext
	default:
		settlements = settlementmemory.NewSettlementRepository(settlementmemory.WithOptimisticLock(cfg.OptimisticLock))
		stationRepo = masterdatamemory.NewStationRepository()
		auditLogger = audit.NewStdLogger(logger)
		logger.Printf("storage: memory mode, data is lost on exit")
	}

	metrics.Init(db, logger)

	var cache masterdataapp.StationListCache
	if cfg.RedisURL != "" {
		redisCache, err := stationcache.NewStationCache(cfg.RedisURL, cfg.StationCacheTTL)
		if err != nil {
			logger.Printf("station cache disabled: %v", err)
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}
	stationService, err := masterdataapp.NewStationService(stationRepo, cache, logger)
	if err != nil {
		logger.Fatalf("station service error: %v", err)
	}
	seedStations(context.Background(), stationService, cfg.Stations, logger)

	directory, err := settlementadapters.NewStationDirectory(stationService)
	if err != nil {
		logger.Fatalf("station directory error: %v", err)
	}

	publishers := settlementinterfaces.MultiPublisher{settlementinterfaces.NewLoggingPublisher(logger)}
	if cfg.NATSURL != "" {
		natsPublisher, err := settlementinterfaces.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Printf("nats publisher disabled: %v", err)
		} else {
			defer natsPublisher.Close()
			publishers = append(publishers, natsPublisher)
		}
	}

	periodService, err := settlementapp.NewPeriodService(
		settlements,
		directory,
		settlementapp.WithPublisher(publishers),
		settlementapp.WithClock(settlementapp.SystemClock{}),
		settlementapp.WithLogger(logger),
		settlementapp.WithWriteLimit(cfg.WriteLimit),
	)
	if err != nil {
		logger.Fatalf("period service error: %v", err)
	}

	formatter, err := settlementinterfaces.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Fatalf("formatter error: %v", err)
	}
	var archive settlementapp.BlobStore
	if cfg.BlobRoot != "" {
		store, err := blob.NewFilesystemStore(cfg.BlobRoot, cfg.BlobPublicBaseURL)
		if err != nil {
			logger.Fatalf("blob store error: %v", err)
		}
		archive = store
	}
	reportService, err := settlementapp.NewReportService(settlements, settlementinterfaces.Renderers(formatter, settlementinterfaces.PDFOptions{FontPath: cfg.ReportFontPath}), archive, logger)
	if err != nil {
		logger.Fatalf("report service error: %v", err)
	}

	settlementHandler, err := settlementinterfaces.NewSettlementHandler(periodService, reportService, formatter, auditLogger, logger)
	if err != nil {
		logger.Fatalf("settlement handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/gas-settlements/", timeoutHandler(settlementHandler, cfg.CommitTimeout))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := healthChecker(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Printf("http listening on %s storage=%s", cfg.HTTPAddr, cfg.Storage)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server error: %v", err)
	}
}

func seedStations(ctx context.Context, service *masterdataapp.StationService, stations []config.Station, logger *log.Logger) {
	for _, seed := range stations {
		timezone := seed.Timezone
		if timezone == "" {
			timezone = "UTC"
		}
		station := &masterdata.Station{
			ID:       seed.ID,
			Name:     seed.Name,
			Timezone: timezone,
			Region:   seed.Region,
			Active:   true,
		}
		if err := service.UpsertStation(ctx, station); err != nil {
			logger.Printf("station seed skipped: id=%s err=%v", seed.ID, err)
		}
	}
}

// timeoutHandler bounds each settlement request.
func timeoutHandler(next http.Handler, timeout time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
