// Package telegram is the bot's only transport: a thin telebot wrapper
// plus the scheduling command handlers.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	rtsup "schedbot/internal/runtime/supervisor"
	logx "schedbot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
	// SendRatePerSec caps proactive sends (digest posts). Telegram
	// throttles bots hard around 30 msg/s globally; default 5.
	SendRatePerSec int
}

type Adapter struct {
	cfg Config
	log logx.Logger

	bot     *tele.Bot
	limiter *rate.Limiter

	runMu   sync.Mutex
	running bool

	// sup owns the poll loop and stop watcher. Created on Start(),
	// cancelled on Stop().
	sup *rtsup.Supervisor
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.SendRatePerSec
	if rps <= 0 {
		rps = 5
	}
	return &Adapter{
		cfg:     cfg,
		log:     log,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// HandlerFunc is a command handler with a request-scoped context.
type HandlerFunc func(ctx context.Context, c tele.Context) error

// Handle registers a command endpoint wrapped with panic recovery,
// per-request id and timing logs.
func (a *Adapter) Handle(endpoint string, h HandlerFunc) {
	log := a.log.With(logx.String("cmd", endpoint))
	a.bot.Handle(endpoint, func(c tele.Context) error {
		reqID := uuid.NewString()
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panicked", logx.String("req_id", reqID), logx.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(a.runContext(), 15*time.Second)
		defer cancel()

		err := h(ctx, c)
		fields := []logx.Field{
			logx.String("req_id", reqID),
			logx.Int64("chat_id", c.Chat().ID),
			logx.Duration("took", time.Since(start)),
		}
		if err != nil {
			log.Warn("handler failed", append(fields, logx.Err(err))...)
			return err
		}
		log.Debug("handler done", fields...)
		return nil
	})
}

func (a *Adapter) runContext() context.Context {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.sup != nil {
		return a.sup.Context()
	}
	return context.Background()
}

// Send posts an HTML message outside any handler (digest posts). It
// waits on the outgoing rate limiter first.
func (a *Adapter) Send(ctx context.Context, chatID int64, html string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := a.bot.Send(tele.ChatID(chatID), html, tele.ModeHTML)
	return err
}

func (a *Adapter) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.sup = rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "telegram.adapter"))),
		// Adapter errors should not take down the whole app.
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	// Stop telebot when the adapter context is cancelled.
	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		if a.bot != nil {
			a.bot.Stop()
		}
	})

	sup.Go0("telebot.poll", func(c context.Context) {
		a.log.Info("polling started")
		// Start blocks until Stop() is called.
		if a.bot != nil {
			a.bot.Start()
		}
		a.log.Info("polling stopped")
	})

	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if sup != nil {
		sup.Cancel()
	}

	// Keep shutdown snappy even if getUpdates long-poll is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	wctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	if sup == nil {
		return nil
	}
	if err := sup.Wait(wctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			a.log.Warn("telegram stop timed out", logx.Err(err))
			return nil
		}
		return err
	}
	return nil
}
