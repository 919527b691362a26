package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/simaogato/checkflow-backend/internal/usecase/dispatcher"
)

// UpdatesAPI is the part of *tgbotapi.BotAPI used to receive updates
type UpdatesAPI interface {
	BotAPI
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler processes one inbound event
type Handler interface {
	Dispatch(ctx context.Context, u dispatcher.Update) error
}

// Poller long-polls the Bot API and hands every update to its own goroutine
type Poller struct {
	api     UpdatesAPI
	handler Handler
	timeout int
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewPoller creates a new Poller; timeout is the long-poll duration in seconds
func NewPoller(api UpdatesAPI, handler Handler, timeout int, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		api:     api,
		handler: handler,
		timeout: timeout,
		logger:  logger,
	}
}

// Run receives updates until ctx is cancelled or the channel closes.
// It returns once every update already handed out has been handled.
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	updates := p.api.GetUpdatesChan(cfg)

	defer p.wg.Wait()

	// In-flight updates finish even after shutdown starts
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			p.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			p.accept(handlerCtx, upd)
		}
	}
}

// accept hands upd to its own goroutine. Answering a callback is a Bot API
// round trip, so it runs there too and never holds up the receive loop.
func (p *Poller) accept(ctx context.Context, upd tgbotapi.Update) {
	u, ok := ToUpdate(upd)
	if !ok && upd.CallbackQuery == nil {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("update handler panicked",
					zap.Int("update_id", upd.UpdateID),
					zap.Any("panic", r))
			}
		}()

		if upd.CallbackQuery != nil {
			if _, err := p.api.Request(tgbotapi.NewCallback(upd.CallbackQuery.ID, "")); err != nil {
				p.logger.Debug("failed to answer callback query", zap.Error(err))
			}
		}
		if !ok {
			return
		}

		if err := p.handler.Dispatch(ctx, u); err != nil {
			p.logger.Warn("failed to handle update",
				zap.Int("update_id", upd.UpdateID),
				zap.Int64("chat_id", u.ChatID),
				zap.Error(err))
		}
	}()
}
