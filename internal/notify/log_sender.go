package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender simulates delivery by logging the code. Used in development and
// whenever no provider is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs the simulated sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.L()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendCode(ctx context.Context, channel Channel, destination, code string) bool {
	s.logger.Info("simulated code delivery",
		zap.String("channel", string(channel)),
		zap.String("destination", destination),
		zap.String("code", code),
	)
	return true
}
