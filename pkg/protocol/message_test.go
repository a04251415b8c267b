package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRenderSubscribe(t *testing.T) {
	msg, err := RenderSubscribe("my-channel")
	require.NoError(t, err)

	assert.Equal(t, "pusher:subscribe", gjson.Get(msg, "event").String())
	assert.Equal(t, "my-channel", gjson.Get(msg, "data.channel").String())
	assert.False(t, gjson.Get(msg, "data.auth").Exists())
	assert.False(t, gjson.Get(msg, "data.channel_data").Exists())
}

func TestRenderSubscribeAuthorized(t *testing.T) {
	msg, err := RenderSubscribeAuthorized("private-my-channel", "appkey:deadbeef", `{"user_id":"1"}`)
	require.NoError(t, err)

	assert.Equal(t, "pusher:subscribe", gjson.Get(msg, "event").String())
	assert.Equal(t, "private-my-channel", gjson.Get(msg, "data.channel").String())
	assert.Equal(t, "appkey:deadbeef", gjson.Get(msg, "data.auth").String())
	assert.Equal(t, `{"user_id":"1"}`, gjson.Get(msg, "data.channel_data").String())
}

func TestRenderUnsubscribe(t *testing.T) {
	msg, err := RenderUnsubscribe("my-channel")
	require.NoError(t, err)

	assert.Equal(t, "pusher:unsubscribe", gjson.Get(msg, "event").String())
	assert.Equal(t, "my-channel", gjson.Get(msg, "data.channel").String())
}

func TestRenderClientEvent(t *testing.T) {
	msg, err := RenderClientEvent("private-my-channel", "client-typing", `{"user":"bob"}`)
	require.NoError(t, err)

	assert.Equal(t, "client-typing", gjson.Get(msg, "event").String())
	assert.Equal(t, "private-my-channel", gjson.Get(msg, "channel").String())
	assert.Equal(t, "bob", gjson.Get(msg, "data.user").String())
}

func TestRenderClientEvent_InvalidData(t *testing.T) {
	_, err := RenderClientEvent("private-my-channel", "client-typing", `{not json`)
	assert.Error(t, err)
}

func TestExtractChannel(t *testing.T) {
	tests := []struct {
		name    string
		message string
		channel string
		present bool
	}{
		{
			name:    "channel event",
			message: `{"event":"my-event","data":{"fish":"chips"},"channel":"my-channel"}`,
			channel: "my-channel",
			present: true,
		},
		{
			name:    "connection event without channel",
			message: `{"event":"pusher:error","data":{"message":"over capacity","code":4100}}`,
			channel: "",
			present: false,
		},
		{
			name:    "empty channel name is still present",
			message: `{"event":"my-event","channel":""}`,
			channel: "",
			present: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel, present := ExtractChannel([]byte(tt.message))
			assert.Equal(t, tt.channel, channel)
			assert.Equal(t, tt.present, present)
		})
	}
}

func TestExtractData(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "object body returned raw",
			message: `{"event":"my-event","data":{"fish":"chips"}}`,
			want:    `{"fish":"chips"}`,
		},
		{
			name:    "double-encoded body unwrapped",
			message: `{"event":"my-event","data":"{\"fish\":\"chips\"}"}`,
			want:    `{"fish":"chips"}`,
		},
		{
			name:    "missing body",
			message: `{"event":"my-event"}`,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractData([]byte(tt.message)))
		})
	}
}

func TestParseAuthResponse(t *testing.T) {
	t.Run("signature only", func(t *testing.T) {
		auth, channelData, err := ParseAuthResponse(`{"auth":"appkey:deadbeef"}`)
		require.NoError(t, err)
		assert.Equal(t, "appkey:deadbeef", auth)
		assert.Empty(t, channelData)
	})

	t.Run("signature with channel data", func(t *testing.T) {
		auth, channelData, err := ParseAuthResponse(`{"auth":"appkey:deadbeef","channel_data":"{\"user_id\":\"1\"}"}`)
		require.NoError(t, err)
		assert.Equal(t, "appkey:deadbeef", auth)
		assert.Equal(t, `{"user_id":"1"}`, channelData)
	})

	t.Run("missing signature", func(t *testing.T) {
		_, _, err := ParseAuthResponse(`{"channel_data":"{}"}`)
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, _, err := ParseAuthResponse(`<html>forbidden</html>`)
		assert.Error(t, err)
	})
}

func TestParseConnectionEstablished(t *testing.T) {
	t.Run("double-encoded data", func(t *testing.T) {
		raw := `{"event":"pusher:connection_established","data":"{\"socket_id\":\"21234.41243\",\"activity_timeout\":120}"}`
		socketID, activityTimeout, err := ParseConnectionEstablished([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "21234.41243", socketID)
		assert.Equal(t, 120*time.Second, activityTimeout)
	})

	t.Run("object data", func(t *testing.T) {
		raw := `{"event":"pusher:connection_established","data":{"socket_id":"1.1","activity_timeout":30}}`
		socketID, activityTimeout, err := ParseConnectionEstablished([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "1.1", socketID)
		assert.Equal(t, 30*time.Second, activityTimeout)
	})

	t.Run("missing activity timeout", func(t *testing.T) {
		raw := `{"event":"pusher:connection_established","data":"{\"socket_id\":\"1.1\"}"}`
		socketID, activityTimeout, err := ParseConnectionEstablished([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "1.1", socketID)
		assert.Zero(t, activityTimeout)
	})

	t.Run("missing socket id", func(t *testing.T) {
		raw := `{"event":"pusher:connection_established","data":"{}"}`
		_, _, err := ParseConnectionEstablished([]byte(raw))
		assert.Error(t, err)
	})
}

func TestParseErrorEvent(t *testing.T) {
	text, code := ParseErrorEvent([]byte(`{"event":"pusher:error","data":{"message":"over capacity","code":4100}}`))
	assert.Equal(t, "over capacity", text)
	assert.Equal(t, 4100, code)
}

func TestEventClassifiers(t *testing.T) {
	assert.True(t, IsClientEvent("client-typing"))
	assert.False(t, IsClientEvent("client-"))
	assert.False(t, IsClientEvent("my-event"))

	assert.True(t, IsInternalEvent("pusher_internal:subscription_succeeded"))
	assert.False(t, IsInternalEvent("pusher:ping"))
	assert.False(t, IsInternalEvent("my-event"))
}
