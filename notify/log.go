package notify

import (
	"context"

	"github.com/jrsteele09/go-otp-auth/verification"
	"github.com/rs/zerolog"
)

// LogChannel writes codes to the log instead of sending them. Codes are only
// emitted at debug level.
type LogChannel struct {
	logger zerolog.Logger
}

var _ Channel = (*LogChannel)(nil)

func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Deliver(_ context.Context, identifier string, kind verification.Kind, code string) error {
	c.logger.Info().Str("to", Mask(identifier)).Str("kind", string(kind)).Msg("verification code delivery skipped (dry run)")
	c.logger.Debug().Str("to", identifier).Str("code", code).Msg("dry run verification code")
	return nil
}
