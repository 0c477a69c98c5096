// Package app wires config, logging, storage, the free-time finder, the
// Telegram transport and the digest service into one lifecycle.
package app

import (
	"context"
	"time"

	"schedbot/internal/config"
	rtsup "schedbot/internal/runtime/supervisor"
	"schedbot/internal/schedule"
	"schedbot/internal/services/digest"
	"schedbot/internal/storage"
	telegram "schedbot/internal/transport/telegram"
	logx "schedbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store   *storage.Store
	finder  *schedule.Finder
	adapter *telegram.Adapter
	digest  *digest.Service

	sup *rtsup.Supervisor
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	finder, err := buildFinder(store, cfg.Schedule)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:          cfg.Telegram.Token,
		PollTimeout:    pollTimeout,
		SendRatePerSec: cfg.Telegram.SendRatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	handlers := telegram.NewHandlers(store, finder, telegram.HandlersConfig{
		Keywords:    keywordsFrom(cfg.Schedule.Keywords),
		HorizonDays: cfg.Schedule.HorizonDays,
	}, log.With(logx.String("comp", "commands")))
	handlers.Register(adapter)

	var dig *digest.Service
	if cfg.Digest != nil {
		dig = digest.New(digest.Config{
			Enabled: cfg.Digest.Enabled,
			Spec:    cfg.Digest.Spec,
			Days:    cfg.Digest.Days,
		}, store, finder, adapter, log.With(logx.String("comp", "digest")))
	}

	return &App{
		cfgm:    cfgm,
		logs:    logs,
		log:     log.With(logx.String("comp", "app")),
		store:   store,
		finder:  finder,
		adapter: adapter,
		digest:  dig,
	}, nil
}

func buildFinder(store *storage.Store, cfg config.ScheduleConfig) (*schedule.Finder, error) {
	start := schedule.DefaultWorkdayStart
	end := schedule.DefaultWorkdayEnd
	var err error
	if cfg.WorkdayStart != "" {
		if start, err = schedule.ParseClock(cfg.WorkdayStart); err != nil {
			return nil, err
		}
	}
	if cfg.WorkdayEnd != "" {
		if end, err = schedule.ParseClock(cfg.WorkdayEnd); err != nil {
			return nil, err
		}
	}
	if !start.Before(end) {
		return nil, schedule.Invalidf("workday end %s must be after start %s", end, start)
	}
	return schedule.NewFinder(store, schedule.WithWorkday(start, end)), nil
}

func keywordsFrom(kw *config.KeywordsConfig) schedule.Keywords {
	if kw == nil {
		return schedule.DefaultKeywords()
	}
	out := schedule.DefaultKeywords()
	if kw.Today != "" {
		out.Today = kw.Today
	}
	if kw.Tomorrow != "" {
		out.Tomorrow = kw.Tomorrow
	}
	if kw.Overmorrow != "" {
		out.Overmorrow = kw.Overmorrow
	}
	return out
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(a.log),
		rtsup.WithCancelOnError(false),
	)

	if err := a.adapter.Start(a.sup.Context()); err != nil {
		return err
	}
	if a.digest != nil {
		if err := a.digest.Start(a.sup.Context()); err != nil {
			return err
		}
	}

	// Hot reload: only the log level is applied live; structural
	// settings need a restart.
	a.sup.Go("config.watch", a.cfgm.Watch)
	sub := a.cfgm.Subscribe(1)
	a.sup.Go0("config.apply", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.logs.SetLevel(cfg.Logging.Level)
				a.log.Info("log level applied", logx.String("level", cfg.Logging.Level))
			}
		}
	})

	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.digest != nil {
		a.digest.Stop()
	}
	if err := a.adapter.Stop(ctx); err != nil {
		a.log.Warn("adapter stop", logx.Err(err))
	}
	if a.sup != nil {
		a.sup.Cancel()
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = a.sup.Wait(wctx)
	}
	err := a.store.Close()
	a.log.Info("stopped")
	_ = a.logs.Close()
	return err
}
