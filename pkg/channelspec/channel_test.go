package channelspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelState_String(t *testing.T) {
	assert.Equal(t, "UNSUBSCRIBED", Unsubscribed.String())
	assert.Equal(t, "SUBSCRIBE_SENT", SubscribeSent.String())
	assert.Equal(t, "SUBSCRIBED", Subscribed.String())
	assert.Equal(t, "UNKNOWN", ChannelState(42).String())
}

func TestNewPublicChannel(t *testing.T) {
	tests := []struct {
		name        string
		channelName string
		wantErr     error
	}{
		{name: "plain name", channelName: "my-channel"},
		{name: "allowed punctuation", channelName: "orders_2024=eu@1,2.3;x"},
		{name: "empty name", channelName: "", wantErr: ErrChannelNameRequired},
		{name: "private prefix", channelName: "private-my-channel", wantErr: ErrInvalidChannelName},
		{name: "presence prefix", channelName: "presence-my-channel", wantErr: ErrInvalidChannelName},
		{name: "forbidden characters", channelName: "my channel", wantErr: ErrInvalidChannelName},
		{name: "slash", channelName: "my/channel", wantErr: ErrInvalidChannelName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel, err := NewPublicChannel(tt.channelName)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, channel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.channelName, channel.Name())
			assert.Equal(t, Unsubscribed, channel.State())
			assert.False(t, channel.IsSubscribed())
		})
	}
}

func TestPublicChannel_BindValidation(t *testing.T) {
	channel, err := NewPublicChannel("my-channel")
	require.NoError(t, err)

	_, err = channel.Bind("", &recordingListener{})
	assert.ErrorIs(t, err, ErrEventNameRequired)

	_, err = channel.Bind("pusher_internal:subscription_succeeded", &recordingListener{})
	assert.ErrorIs(t, err, ErrInternalEventBinding)

	_, err = channel.Bind("my-event", nil)
	assert.ErrorIs(t, err, ErrNilListener)
}

func TestPublicChannel_BindAndUnbind(t *testing.T) {
	channel, err := NewPublicChannel("my-channel")
	require.NoError(t, err)

	first := &recordingListener{}
	second := &recordingListener{}

	firstID, err := channel.Bind("my-event", first)
	require.NoError(t, err)
	_, err = channel.Bind("my-event", second)
	require.NoError(t, err)

	raw := []byte(`{"event":"my-event","data":{"fish":"chips"},"channel":"my-channel"}`)
	channel.HandleMessage("my-event", raw)
	assert.Len(t, first.receivedEvents(), 1)
	assert.Len(t, second.receivedEvents(), 1)

	channel.Unbind("my-event", firstID)
	channel.HandleMessage("my-event", raw)
	assert.Len(t, first.receivedEvents(), 1)
	assert.Len(t, second.receivedEvents(), 2)

	// unknown ids and events are ignored
	channel.Unbind("my-event", "no-such-binding")
	channel.Unbind("other-event", firstID)
}

func TestPublicChannel_HandleMessage(t *testing.T) {
	t.Run("delivers to listeners bound to the event name", func(t *testing.T) {
		channel, err := NewPublicChannel("my-channel")
		require.NoError(t, err)

		bound := &recordingListener{}
		other := &recordingListener{}
		_, err = channel.Bind("my-event", bound)
		require.NoError(t, err)
		_, err = channel.Bind("other-event", other)
		require.NoError(t, err)

		channel.HandleMessage("my-event", []byte(`{"event":"my-event","data":{"fish":"chips"},"channel":"my-channel"}`))

		events := bound.receivedEvents()
		require.Len(t, events, 1)
		assert.Equal(t, Event{Channel: "my-channel", Name: "my-event", Data: `{"fish":"chips"}`}, events[0])
		assert.Empty(t, other.receivedEvents())
	})

	t.Run("the lifecycle listener hears every event", func(t *testing.T) {
		channel, err := NewPublicChannel("my-channel")
		require.NoError(t, err)

		lifecycle := &recordingListener{}
		channel.SetEventListener(lifecycle)
		bound := &recordingListener{}
		_, err = channel.Bind("my-event", bound)
		require.NoError(t, err)

		channel.HandleMessage("my-event", []byte(`{"event":"my-event","data":{"n":1},"channel":"my-channel"}`))
		channel.HandleMessage("unbound-event", []byte(`{"event":"unbound-event","data":{"n":2},"channel":"my-channel"}`))

		require.Len(t, bound.receivedEvents(), 1)
		events := lifecycle.receivedEvents()
		require.Len(t, events, 2)
		assert.Equal(t, "my-event", events[0].Name)
		assert.Equal(t, "unbound-event", events[1].Name)
	})

	t.Run("a listener that is both bound and lifecycle is notified once", func(t *testing.T) {
		channel, err := NewPublicChannel("my-channel")
		require.NoError(t, err)

		listener := &recordingListener{}
		channel.SetEventListener(listener)
		_, err = channel.Bind("my-event", listener)
		require.NoError(t, err)

		channel.HandleMessage("my-event", []byte(`{"event":"my-event","data":{"fish":"chips"},"channel":"my-channel"}`))

		assert.Len(t, listener.receivedEvents(), 1)
	})

	t.Run("unwraps double-encoded payloads", func(t *testing.T) {
		channel, err := NewPublicChannel("my-channel")
		require.NoError(t, err)

		listener := &recordingListener{}
		_, err = channel.Bind("my-event", listener)
		require.NoError(t, err)

		channel.HandleMessage("my-event", []byte(`{"event":"my-event","data":"{\"fish\":\"chips\"}","channel":"my-channel"}`))

		events := listener.receivedEvents()
		require.Len(t, events, 1)
		assert.Equal(t, `{"fish":"chips"}`, events[0].Data)
	})

	t.Run("no bound listeners", func(t *testing.T) {
		channel, err := NewPublicChannel("my-channel")
		require.NoError(t, err)
		channel.HandleMessage("my-event", []byte(`{"event":"my-event","channel":"my-channel"}`))
	})
}

func TestPublicChannel_SubscriptionAcknowledgement(t *testing.T) {
	channel, err := NewPublicChannel("my-channel")
	require.NoError(t, err)

	lifecycle := &recordingListener{}
	channel.SetEventListener(lifecycle)

	bound := &recordingListener{}
	_, err = channel.Bind("my-event", bound)
	require.NoError(t, err)

	channel.HandleMessage("pusher_internal:subscription_succeeded",
		[]byte(`{"event":"pusher_internal:subscription_succeeded","data":"{}","channel":"my-channel"}`))

	assert.True(t, channel.IsSubscribed())
	assert.Equal(t, []string{"my-channel"}, lifecycle.succeededChannels())
	// the acknowledgement is not delivered as a regular event
	assert.Empty(t, lifecycle.receivedEvents())
	assert.Empty(t, bound.receivedEvents())
}

func TestPublicChannel_UpdateState(t *testing.T) {
	channel, err := NewPublicChannel("my-channel")
	require.NoError(t, err)

	lifecycle := &recordingListener{}
	channel.SetEventListener(lifecycle)

	channel.UpdateState(SubscribeSent)
	assert.Equal(t, SubscribeSent, channel.State())
	assert.Empty(t, lifecycle.succeededChannels())

	channel.UpdateState(Subscribed)
	assert.Equal(t, []string{"my-channel"}, lifecycle.succeededChannels())

	channel.UpdateState(Unsubscribed)
	assert.Equal(t, Unsubscribed, channel.State())
	assert.Len(t, lifecycle.succeededChannels(), 1)
}

func TestPublicChannel_Messages(t *testing.T) {
	channel, err := NewPublicChannel("my-channel")
	require.NoError(t, err)

	subscribe, err := channel.SubscribeMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"pusher:subscribe","data":{"channel":"my-channel"}}`, subscribe)

	unsubscribe, err := channel.UnsubscribeMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"pusher:unsubscribe","data":{"channel":"my-channel"}}`, unsubscribe)
}
