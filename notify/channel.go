package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-otp-auth/verification"
)

var ErrNoChannel = errors.New("no delivery channel for kind")

// Channel delivers a one-time code to an identifier out of band.
type Channel interface {
	Deliver(ctx context.Context, identifier string, kind verification.Kind, code string) error
}

// Router picks a channel by identifier kind.
type Router struct {
	channels map[verification.Kind]Channel
}

var _ Channel = (*Router)(nil)

func NewRouter(phone, email Channel) *Router {
	return &Router{
		channels: map[verification.Kind]Channel{
			verification.KindPhone: phone,
			verification.KindEmail: email,
		},
	}
}

func (r *Router) Deliver(ctx context.Context, identifier string, kind verification.Kind, code string) error {
	ch, ok := r.channels[kind]
	if !ok || ch == nil {
		return fmt.Errorf("%w: %s", ErrNoChannel, kind)
	}
	return ch.Deliver(ctx, identifier, kind, code)
}

func messageText(code string) string {
	return fmt.Sprintf("Your verification code is %s. It expires in a few minutes. Do not share it with anyone.", code)
}

// Mask hides most of an identifier for logs: "+1555***4567", "ja***@example.com".
func Mask(identifier string) string {
	if at := strings.IndexByte(identifier, '@'); at >= 0 {
		local := identifier[:at]
		if len(local) > 2 {
			local = local[:2]
		}
		return local + "***" + identifier[at:]
	}
	if len(identifier) <= 8 {
		return "***"
	}
	return identifier[:5] + "***" + identifier[len(identifier)-4:]
}
