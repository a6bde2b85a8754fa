package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/successdanesy/Knowledge-Drop-Bot/assets"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/config"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/engagement"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/facts"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/leaderboard"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/metrics"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/quiz"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/scheduler"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/store"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/telegram"
)

const janitorInterval = time.Minute

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	reg     *prometheus.Registry
	repo    store.Repo
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv, reg: reg}, nil
}

// openStore opens the configured backend.
func openStore(ctx context.Context, cfg config.Config) (store.Repo, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return store.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return store.OpenSQLite(ctx, cfg.DBPath)
	}
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting knowledge-drop-bot",
		zap.String("store", a.cfg.StoreDriver),
		zap.String("clock", a.cfg.ScheduleClock),
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("bot", a.bot.Self.UserName),
	)

	repo, err := openStore(ctx, a.cfg)
	if err != nil {
		a.log.Error("open store failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("store ready", zap.String("driver", a.cfg.StoreDriver))

	catalog, err := facts.Load(assets.FactsFS)
	if err != nil {
		_ = a.repo.Close()
		return fmt.Errorf("load facts: %w", err)
	}
	a.log.Info("facts loaded", zap.Int("count", catalog.Count(domain.ThemeRandomMix)))

	rec := metrics.NewCollector(a.reg)
	loc := a.cfg.Location()
	engine := engagement.New(a.repo, loc, rec, a.log.Named("engagement"))
	sessions := quiz.NewSessions(a.cfg.QuizTTL, nil)

	a.router = telegram.NewRouter(telegram.Deps{
		Bot:      a.bot,
		SendRate: a.cfg.SendRate,
		Repo:     a.repo,
		Engine:   engine,
		Board:    leaderboard.New(a.repo),
		Facts:    catalog,
		Quiz:     quiz.NewBuilder(catalog),
		Sessions: sessions,
		Admins:   a.cfg.AdminIDs,
		Log:      a.log.Named("telegram"),
	})

	sched := scheduler.New(a.repo, engine, catalog, a.router, rec, a.log.Named("scheduler"), scheduler.Options{
		Mode:        a.cfg.ClockMode(),
		Fallback:    loc,
		Concurrency: a.cfg.DeliveryConcurrency,
		Timeout:     a.cfg.DeliveryTimeout,
	})

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sessions.RunJanitor(ctx, janitorInterval)
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.bot.StopReceivingUpdates()

			// Wait for an in-flight tick before closing the store under it.
			wg.Wait()

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
