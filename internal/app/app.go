package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/admin"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/config"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/discord"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/goals"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/notify"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/progress"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/scheduler"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/sheets"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/store"
)

type App struct {
	cfg   config.Config
	log   *zap.Logger
	loc   *time.Location
	bot   *discord.Bot
	repo  store.Repo
	cache sheets.JSONCache
	sched *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := discord.New(cfg.DiscordToken, log.Named("discord"))
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, log: log, loc: cfg.Location(), bot: bot}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.log.Info("starting fumiyome-bird",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("tz", a.loc.String()),
		zap.Int("goal_users", len(a.cfg.GoalUserIDs)),
	)

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	defer a.closeAll()
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	goalStore := goals.Open(a.cfg.GoalsPath, a.log.Named("goals"))
	source := a.statsSource(ctx)
	analyzer := progress.New(source, goalStore, a.loc)

	if err := a.bot.Open(); err != nil {
		a.log.Error("discord connect failed", zap.Error(err))
		return err
	}

	dispatcher := notify.New(source, goalStore, analyzer, a.bot, repo, a.log.Named("notify"), notify.Options{
		ChannelID:         a.cfg.NotificationChannelID,
		GoalUserIDs:       a.cfg.GoalUserIDs,
		UserDelay:         a.cfg.UserReportDelay,
		AbandonedAfter:    a.cfg.AbandonedAfter,
		Location:          a.loc,
		ScheduleOverrides: a.cfg.Overrides(),
	})
	if a.cfg.NotificationChannelID == "" {
		a.log.Warn("NOTIFICATION_CHANNEL_ID not set, using the first text channel")
	}
	if len(a.cfg.GoalUserIDs) == 0 {
		a.log.Warn("GOAL_USER_IDS not set, goal-progress reports will be skipped")
	}

	a.sched = scheduler.New(a.log.Named("scheduler"), a.loc)
	if err := dispatcher.Register(a.sched); err != nil {
		// Bad overrides only disable their own report.
		a.log.Error("some reports were not scheduled", zap.Error(err))
	}
	a.sched.Start(ctx)

	srv := &http.Server{
		Addr: a.cfg.HTTPAddr,
		Handler: admin.NewRouter(admin.Deps{
			Dispatcher: dispatcher,
			Scheduler:  a.sched,
			Goals:      goalStore,
			Progress:   analyzer,
			Runs:       repo,
			Token:      a.cfg.AdminToken,
		}, a.log.Named("admin")),
		ReadTimeout: 5 * time.Second,
		// Manual runs of paced reports take about a second per user.
		WriteTimeout: 2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutdown signal received")
		a.sched.StopAll()

		// Create a short-lived shutdown context and cancel it immediately after use.
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := srv.Shutdown(shCtx)
		cancel()
		if err != nil {
			a.log.Warn("http server shutdown error", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

// statsSource picks the spreadsheet client, decorated with the cache, or an
// always-failing source when the spreadsheet is not configured or unreachable.
func (a *App) statsSource(ctx context.Context) notify.StatsSource {
	var src sheets.Source = sheets.Unavailable{}
	if a.cfg.SpreadsheetID == "" {
		a.log.Warn("SPREADSHEET_ID not set, reports will run without statistics")
	} else {
		client, err := sheets.NewClient(ctx, a.cfg.SpreadsheetID, a.cfg.GoogleCredentialsFile, a.loc, a.log.Named("sheets"))
		if err != nil {
			a.log.Error("sheets client init failed, reports will run without statistics", zap.Error(err))
		} else {
			src = client
		}
	}

	cache, err := sheets.NewCache(a.cfg.RedisURL, "fumiyome")
	if err != nil {
		a.log.Warn("redis cache disabled", zap.Error(err))
		cache = sheets.NoopCache{}
	} else if err := cache.Ping(ctx); err != nil {
		a.log.Warn("redis not reachable, cache reads will fall through", zap.Error(err))
	}
	a.cache = cache
	return sheets.NewCachedSource(src, cache, a.cfg.CacheTTL, a.loc, a.log.Named("cache"))
}

func (a *App) closeAll() {
	if a.bot != nil {
		if err := a.bot.Close(); err != nil {
			a.log.Warn("discord close error", zap.Error(err))
		}
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
}
