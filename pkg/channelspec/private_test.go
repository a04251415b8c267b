package channelspec

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitechdev/ChannelSpec/pkg/auth"
	"github.com/bitechdev/ChannelSpec/pkg/connection"
)

// fakeAuthorizer returns a scripted response, recording what was asked
type fakeAuthorizer struct {
	mu       sync.Mutex
	response string
	err      error
	requests [][2]string
}

func (a *fakeAuthorizer) Authorize(channelName, socketID string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, [2]string{channelName, socketID})
	if a.err != nil {
		return "", a.err
	}
	return a.response, nil
}

func TestNewPrivateChannel(t *testing.T) {
	conn := newFakeConnection()
	authorizer := &fakeAuthorizer{response: `{"auth":"key:sig"}`}

	t.Run("valid", func(t *testing.T) {
		channel, err := NewPrivateChannel("private-my-channel", conn, authorizer)
		require.NoError(t, err)
		assert.Equal(t, "private-my-channel", channel.Name())
		assert.Equal(t, Unsubscribed, channel.State())
	})

	t.Run("missing prefix", func(t *testing.T) {
		_, err := NewPrivateChannel("my-channel", conn, authorizer)
		assert.ErrorIs(t, err, ErrInvalidChannelName)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := NewPrivateChannel("", conn, authorizer)
		assert.ErrorIs(t, err, ErrChannelNameRequired)
	})

	t.Run("forbidden characters", func(t *testing.T) {
		_, err := NewPrivateChannel("private-my channel", conn, authorizer)
		assert.ErrorIs(t, err, ErrInvalidChannelName)
	})

	t.Run("nil connection", func(t *testing.T) {
		_, err := NewPrivateChannel("private-my-channel", nil, authorizer)
		assert.ErrorIs(t, err, ErrNilConnection)
	})

	t.Run("nil authorizer", func(t *testing.T) {
		_, err := NewPrivateChannel("private-my-channel", conn, nil)
		assert.ErrorIs(t, err, ErrNilAuthorizer)
	})
}

func TestPrivateChannel_SubscribeMessage(t *testing.T) {
	t.Run("carries the signature", func(t *testing.T) {
		conn := newFakeConnection()
		authorizer := &fakeAuthorizer{response: `{"auth":"key:sig"}`}
		channel, err := NewPrivateChannel("private-my-channel", conn, authorizer)
		require.NoError(t, err)

		message, err := channel.SubscribeMessage()
		require.NoError(t, err)
		assert.Equal(t, `{"event":"pusher:subscribe","data":{"channel":"private-my-channel","auth":"key:sig"}}`, message)

		require.Len(t, authorizer.requests, 1)
		assert.Equal(t, [2]string{"private-my-channel", "21234.41243"}, authorizer.requests[0])
	})

	t.Run("forwards channel data when present", func(t *testing.T) {
		conn := newFakeConnection()
		authorizer := &fakeAuthorizer{response: `{"auth":"key:sig","channel_data":"{\"user_id\":\"1\"}"}`}
		channel, err := NewPrivateChannel("private-my-channel", conn, authorizer)
		require.NoError(t, err)

		message, err := channel.SubscribeMessage()
		require.NoError(t, err)
		assert.Equal(t, `{"event":"pusher:subscribe","data":{"channel":"private-my-channel","auth":"key:sig","channel_data":"{\"user_id\":\"1\"}"}}`, message)
	})

	t.Run("authorization errors pass through", func(t *testing.T) {
		conn := newFakeConnection()
		cause := errors.New("connection refused")
		authorizer := &fakeAuthorizer{err: &auth.AuthorizationError{Message: "unable to contact auth server", Err: cause}}
		channel, err := NewPrivateChannel("private-my-channel", conn, authorizer)
		require.NoError(t, err)

		_, err = channel.SubscribeMessage()
		var authErr *auth.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "unable to contact auth server", authErr.Message)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("plain errors are wrapped", func(t *testing.T) {
		conn := newFakeConnection()
		cause := errors.New("boom")
		authorizer := &fakeAuthorizer{err: cause}
		channel, err := NewPrivateChannel("private-my-channel", conn, authorizer)
		require.NoError(t, err)

		_, err = channel.SubscribeMessage()
		var authErr *auth.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "authorization failed", authErr.Message)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("malformed response", func(t *testing.T) {
		conn := newFakeConnection()
		authorizer := &fakeAuthorizer{response: `<html>forbidden</html>`}
		channel, err := NewPrivateChannel("private-my-channel", conn, authorizer)
		require.NoError(t, err)

		_, err = channel.SubscribeMessage()
		var authErr *auth.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "malformed authorization response", authErr.Message)
	})
}

func TestPrivateChannel_Trigger(t *testing.T) {
	newSubscribed := func(t *testing.T, opts ...RestrictedChannelOption) (*PrivateChannel, *fakeConnection) {
		t.Helper()
		conn := newFakeConnection()
		conn.setState(connection.Connected)
		authorizer := &fakeAuthorizer{response: `{"auth":"key:sig"}`}
		channel, err := NewPrivateChannel("private-my-channel", conn, authorizer, opts...)
		require.NoError(t, err)
		channel.UpdateState(Subscribed)
		return channel, conn
	}

	t.Run("sends the client event", func(t *testing.T) {
		channel, conn := newSubscribed(t)
		require.NoError(t, channel.Trigger("client-typing", `{"user":"bob"}`))
		assert.Equal(t, []string{`{"event":"client-typing","channel":"private-my-channel","data":{"user":"bob"}}`}, conn.sentMessages())
	})

	t.Run("empty data sends an empty object", func(t *testing.T) {
		channel, conn := newSubscribed(t)
		require.NoError(t, channel.Trigger("client-typing", ""))
		assert.Equal(t, []string{`{"event":"client-typing","channel":"private-my-channel","data":{}}`}, conn.sentMessages())
	})

	t.Run("rejects names without the client prefix", func(t *testing.T) {
		channel, conn := newSubscribed(t)
		assert.ErrorIs(t, channel.Trigger("typing", "{}"), ErrInvalidTriggerEvent)
		assert.ErrorIs(t, channel.Trigger("client-", "{}"), ErrInvalidTriggerEvent)
		assert.Empty(t, conn.sentMessages())
	})

	t.Run("rejects before the subscription is acknowledged", func(t *testing.T) {
		conn := newFakeConnection()
		conn.setState(connection.Connected)
		authorizer := &fakeAuthorizer{response: `{"auth":"key:sig"}`}
		channel, err := NewPrivateChannel("private-my-channel", conn, authorizer)
		require.NoError(t, err)

		assert.ErrorIs(t, channel.Trigger("client-typing", "{}"), ErrNotSubscribed)
	})

	t.Run("rejects while the connection is down", func(t *testing.T) {
		channel, conn := newSubscribed(t)
		conn.setState(connection.Disconnected)
		assert.ErrorIs(t, channel.Trigger("client-typing", "{}"), ErrNotConnected)
	})

	t.Run("rejects invalid data", func(t *testing.T) {
		channel, _ := newSubscribed(t)
		assert.Error(t, channel.Trigger("client-typing", `{not json`))
	})

	t.Run("enforces the rate limit", func(t *testing.T) {
		channel, conn := newSubscribed(t, WithTriggerLimit(1, 1))
		require.NoError(t, channel.Trigger("client-typing", "{}"))
		assert.ErrorIs(t, channel.Trigger("client-typing", "{}"), ErrTriggerRateExceeded)
		assert.Len(t, conn.sentMessages(), 1)
	})
}

func TestNewPresenceChannel(t *testing.T) {
	conn := newFakeConnection()
	authorizer := &fakeAuthorizer{response: `{"auth":"key:sig","channel_data":"{\"user_id\":\"1\"}"}`}

	t.Run("valid", func(t *testing.T) {
		channel, err := NewPresenceChannel("presence-my-channel", conn, authorizer)
		require.NoError(t, err)
		assert.Equal(t, "presence-my-channel", channel.Name())
	})

	t.Run("missing prefix", func(t *testing.T) {
		_, err := NewPresenceChannel("private-my-channel", conn, authorizer)
		assert.ErrorIs(t, err, ErrInvalidChannelName)
	})

	t.Run("nil authorizer", func(t *testing.T) {
		_, err := NewPresenceChannel("presence-my-channel", conn, nil)
		assert.ErrorIs(t, err, ErrNilAuthorizer)
	})
}

func TestPresenceChannel_SubscribeMessage(t *testing.T) {
	t.Run("requires channel data", func(t *testing.T) {
		conn := newFakeConnection()
		authorizer := &fakeAuthorizer{response: `{"auth":"key:sig"}`}
		channel, err := NewPresenceChannel("presence-my-channel", conn, authorizer)
		require.NoError(t, err)

		_, err = channel.SubscribeMessage()
		var authErr *auth.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Contains(t, authErr.Message, "channel_data")
	})

	t.Run("carries signature and channel data", func(t *testing.T) {
		conn := newFakeConnection()
		authorizer := &fakeAuthorizer{response: `{"auth":"key:sig","channel_data":"{\"user_id\":\"1\"}"}`}
		channel, err := NewPresenceChannel("presence-my-channel", conn, authorizer)
		require.NoError(t, err)

		message, err := channel.SubscribeMessage()
		require.NoError(t, err)
		assert.Equal(t, `{"event":"pusher:subscribe","data":{"channel":"presence-my-channel","auth":"key:sig","channel_data":"{\"user_id\":\"1\"}"}}`, message)
	})

	t.Run("authorization errors pass through", func(t *testing.T) {
		conn := newFakeConnection()
		authorizer := &fakeAuthorizer{err: &auth.AuthorizationError{Message: "unable to contact auth server"}}
		channel, err := NewPresenceChannel("presence-my-channel", conn, authorizer)
		require.NoError(t, err)

		_, err = channel.SubscribeMessage()
		var authErr *auth.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "unable to contact auth server", authErr.Message)
	})
}
