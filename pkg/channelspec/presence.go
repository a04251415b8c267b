package channelspec

import (
	"fmt"
	"strings"

	"github.com/bitechdev/ChannelSpec/pkg/auth"
	"github.com/bitechdev/ChannelSpec/pkg/connection"
	"github.com/bitechdev/ChannelSpec/pkg/protocol"
)

// PresenceChannel is a restricted channel whose subscription announces the
// subscriber to other members. The authorization response must carry
// channel_data identifying the user.
type PresenceChannel struct {
	*PrivateChannel
}

var _ InternalChannel = (*PresenceChannel)(nil)

// NewPresenceChannel creates a presence channel. The name must carry the
// presence channel prefix.
func NewPresenceChannel(name string, conn connection.InternalConnection, authorizer auth.Authorizer, opts ...RestrictedChannelOption) (*PresenceChannel, error) {
	if name != "" && !strings.HasPrefix(name, protocol.PresenceChannelPrefix) {
		return nil, fmt.Errorf("%w: %q lacks the %q prefix", ErrInvalidChannelName, name, protocol.PresenceChannelPrefix)
	}
	inner, err := newRestrictedChannel(name, conn, authorizer, opts...)
	if err != nil {
		return nil, err
	}
	return &PresenceChannel{PrivateChannel: inner}, nil
}

// SubscribeMessage runs the authorization exchange and renders the subscribe
// payload. Presence subscriptions without channel_data are rejected before
// anything reaches the wire.
func (c *PresenceChannel) SubscribeMessage() (string, error) {
	signature, channelData, err := c.authorize()
	if err != nil {
		return "", err
	}
	if channelData == "" {
		return "", &auth.AuthorizationError{
			Message: fmt.Sprintf("presence authorization for %s carries no channel_data", c.Name()),
		}
	}
	return protocol.RenderSubscribeAuthorized(c.Name(), signature, channelData)
}
