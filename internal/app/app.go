package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mg-anjaan/BotTelegramSCan/internal/config"
	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/enums"
	s3infra "github.com/mg-anjaan/BotTelegramSCan/internal/infra/s3"
	"github.com/mg-anjaan/BotTelegramSCan/internal/infra/telegram"
	"github.com/mg-anjaan/BotTelegramSCan/internal/repo/dualrepo"
	"github.com/mg-anjaan/BotTelegramSCan/internal/repo/postgres"
	"github.com/mg-anjaan/BotTelegramSCan/internal/repo/rediscache"
	"github.com/mg-anjaan/BotTelegramSCan/internal/repo/scoringhttp"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/enforcement"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/engine"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/fusion"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/heuristic"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/ledger"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/signals"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/whitelist"
)

type App struct {
	cfg    config.Config
	logger *slog.Logger
	db     *sql.DB
	tg     *telegram.Client

	whitelistService   *whitelist.Service
	ledgerService      *ledger.Service
	enforcementService *enforcement.Service
	engine             *engine.Engine

	// tasks tracks in-flight media evaluations so shutdown can let them
	// finish instead of dropping an enforcement halfway through.
	tasks sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{cfg: cfg, logger: logger}

	db, err := postgres.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Warn("postgres unavailable, continuing with in-memory ledger only", "error", err)
		db = nil
	}
	if db != nil {
		if err := postgres.EnsureSchema(context.Background(), db); err != nil {
			logger.Warn("ensure schema failed", "error", err)
		}
	}
	a.db = db

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	var offenseStore dualrepo.OffenseStore
	var whitelistRepo whitelist.Repo
	if db != nil {
		offenseStore = postgres.NewOffenseRepo(db)
		whitelistRepo = postgres.NewWhitelistRepo(db)
	}

	var whitelistCache whitelist.Cache
	if redisClient != nil {
		whitelistCache = rediscache.NewWhitelist(redisClient, 5*time.Minute)
	}

	a.whitelistService = whitelist.NewService(whitelistRepo, whitelistCache, logger)
	a.ledgerService = ledger.NewService(dualrepo.NewLedger(offenseStore, logger), cfg.MuteAfterOffenses)

	var remote signals.RemoteScorer
	if cfg.ModelAPIURL != "" {
		client, err := scoringhttp.NewClient(cfg.ModelAPIURL, cfg.ModelSecret, cfg.ModelFieldName, time.Duration(cfg.SourceTimeoutSeconds)*time.Second)
		if err != nil {
			return nil, err
		}
		remote = client
	} else {
		logger.Warn("MODEL_API_URL is empty, running on the skin heuristic only")
	}

	var local signals.LocalScorer
	if cfg.UseSkinHeuristic {
		local = heuristic.NewScorer(cfg.SkinCheckCrops, cfg.SkinMinAreaPx)
	}

	collector := signals.NewCollector(remote, local, time.Duration(cfg.SourceTimeoutSeconds)*time.Second, logger)

	policy := fusion.Policy{
		Mode:           enums.FusionMode(cfg.FusionMode),
		ModelThreshold: cfg.ModelThreshold,
		SkinThreshold:  cfg.SkinThreshold,
		SkinWeight:     cfg.SkinWeight,
	}

	tg, err := telegram.NewClient(cfg.BotToken, cfg.PollTimeoutSeconds, time.Duration(cfg.DownloadTimeoutSeconds)*time.Second, logger, a.routeUpdate)
	if err != nil {
		return nil, err
	}
	a.tg = tg

	a.enforcementService = enforcement.NewService(tg, a.ledgerService, cfg.OwnerChatID, logger)

	var archive engine.EvidenceArchive
	if cfg.S3Endpoint != "" && cfg.S3Bucket != "" {
		arch, err := s3infra.NewArchive(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			logger.Warn("evidence archive unavailable", "error", err)
		} else {
			archive = arch
		}
	}

	a.engine = engine.New(a.whitelistService, collector, policy, a.ledgerService, a.enforcementService, archive, logger)

	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	if a.cfg.MetricsAddr != "" {
		go a.serveMetrics(ctx)
	}

	err := a.tg.Start(ctx)

	// Polling has stopped; let in-flight evaluations finish their current
	// stage before returning.
	a.tasks.Wait()

	if a.db != nil {
		_ = a.db.Close()
	}
	return err
}

func (a *App) reply(ctx context.Context, chatID int64, text string) {
	if err := a.tg.SendMessage(ctx, chatID, text); err != nil {
		a.logger.Warn("reply failed", "chat_id", chatID, "error", err)
	}
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Warn("metrics listener failed", "error", err)
	}
}
