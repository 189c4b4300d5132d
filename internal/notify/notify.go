package notify

import (
	"context"

	"github.com/vinshon/buildxup-backend/internal/domain"
)

// Channel selects the delivery mechanism for a one-time code.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// ChannelFor maps an identity kind to its delivery channel.
func ChannelFor(identity domain.Identity) Channel {
	if identity.Kind == domain.IdentityEmail {
		return ChannelEmail
	}
	return ChannelSMS
}

// Sender dispatches a one-time code to a destination. Implementations never
// return an error; delivery faults are reported as false so issuance can
// persist the code for a retry path regardless.
type Sender interface {
	SendCode(ctx context.Context, channel Channel, destination, code string) bool
}
