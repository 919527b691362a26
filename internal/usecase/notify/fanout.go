package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

// Report summarizes a broadcast
type Report struct {
	Delivered int
	Failed    []int64
}

// FanOut delivers one message to many chats, best effort
type FanOut struct {
	messenger domain.Messenger
	logger    *zap.Logger
}

// NewFanOut creates a new FanOut instance
func NewFanOut(messenger domain.Messenger, logger *zap.Logger) *FanOut {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanOut{messenger: messenger, logger: logger}
}

// Broadcast sends msg to every chat in chatIDs.
// A failed delivery is logged and never stops the remaining attempts.
func (f *FanOut) Broadcast(ctx context.Context, chatIDs []int64, msg domain.Message) Report {
	var report Report

	for _, chatID := range chatIDs {
		if err := f.messenger.Send(ctx, msg.WithChat(chatID)); err != nil {
			f.logger.Warn("notification delivery failed",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
			report.Failed = append(report.Failed, chatID)
			continue
		}
		report.Delivered++
	}

	return report
}
