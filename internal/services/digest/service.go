// Package digest posts each chat's common free time on a cron schedule,
// so groups see their day's options without asking.
package digest

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"schedbot/internal/schedule"
	telegram "schedbot/internal/transport/telegram"
	logx "schedbot/pkg/logx"
)

type Config struct {
	Enabled bool
	// Spec is a cron expression; default "0 8 * * *" (daily, 08:00).
	Spec string
	// Days is the horizon per post; default 1 (today only).
	Days int
}

// Rosters is the slice of the store the digest reads.
type Rosters interface {
	Chats(ctx context.Context) ([]int64, error)
	Members(ctx context.Context, chatID int64) ([]int64, error)
}

// Sender posts a rendered HTML message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, html string) error
}

type Service struct {
	cfg    Config
	store  Rosters
	finder *schedule.Finder
	sender Sender
	log    logx.Logger

	cron *cron.Cron
}

func New(cfg Config, store Rosters, finder *schedule.Finder, sender Sender, log logx.Logger) *Service {
	if cfg.Spec == "" {
		cfg.Spec = "0 8 * * *"
	}
	if cfg.Days <= 0 {
		cfg.Days = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, finder: finder, sender: sender, log: log}
}

func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Debug("digest disabled")
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Spec, func() { s.run(ctx) }); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.log.Info("digest scheduled", logx.String("spec", s.cfg.Spec), logx.Int("days", s.cfg.Days))
	return nil
}

func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn("digest stop timed out waiting for running job")
	}
	s.cron = nil
}

func (s *Service) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	chats, err := s.store.Chats(ctx)
	if err != nil {
		s.log.Error("digest: listing chats failed", logx.Err(err))
		return
	}
	for _, chatID := range chats {
		if err := s.post(ctx, chatID); err != nil {
			s.log.Warn("digest post failed", logx.Int64("chat_id", chatID), logx.Err(err))
		}
	}
}

func (s *Service) post(ctx context.Context, chatID int64) error {
	members, err := s.store.Members(ctx, chatID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	free, err := s.finder.CommonFreeTime(ctx, members, s.cfg.Days)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, chatID, telegram.RenderFreeTime(free).String())
}
