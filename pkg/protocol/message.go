package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Protocol event names
const (
	EventSubscribe             = "pusher:subscribe"
	EventUnsubscribe           = "pusher:unsubscribe"
	EventConnectionEstablished = "pusher:connection_established"
	EventError                 = "pusher:error"
	EventPing                  = "pusher:ping"
	EventPong                  = "pusher:pong"
	EventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
)

// Name prefixes with protocol meaning
const (
	PrivateChannelPrefix  = "private-"
	PresenceChannelPrefix = "presence-"
	ClientEventPrefix     = "client-"
	InternalEventPrefix   = "pusher_internal:"
)

// Message is the wire envelope. Data is kept raw: depending on the event it
// carries an object or a double-encoded JSON string.
type Message struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SubscribeData is the data body of a subscribe message. Auth and ChannelData
// are only present for private/presence subscriptions and are copied verbatim
// from the authorization response.
type SubscribeData struct {
	Channel     string `json:"channel"`
	Auth        string `json:"auth,omitempty"`
	ChannelData string `json:"channel_data,omitempty"`
}

// UnsubscribeData is the data body of an unsubscribe message
type UnsubscribeData struct {
	Channel string `json:"channel"`
}

// RenderSubscribe renders the subscribe payload for an unrestricted channel
func RenderSubscribe(channel string) (string, error) {
	return render(EventSubscribe, SubscribeData{Channel: channel})
}

// RenderSubscribeAuthorized renders the subscribe payload for a restricted
// channel, carrying the signature (and optional channel_data) obtained from
// the authorization exchange
func RenderSubscribeAuthorized(channel, auth, channelData string) (string, error) {
	return render(EventSubscribe, SubscribeData{
		Channel:     channel,
		Auth:        auth,
		ChannelData: channelData,
	})
}

// RenderUnsubscribe renders the unsubscribe payload
func RenderUnsubscribe(channel string) (string, error) {
	return render(EventUnsubscribe, UnsubscribeData{Channel: channel})
}

// RenderClientEvent renders a client event payload. The data argument must be
// valid JSON and is embedded without re-encoding.
func RenderClientEvent(channel, event, data string) (string, error) {
	if !gjson.Valid(data) {
		return "", fmt.Errorf("client event data is not valid JSON")
	}
	base, err := json.Marshal(Message{Event: event, Channel: channel})
	if err != nil {
		return "", fmt.Errorf("failed to render client event: %w", err)
	}
	out, err := sjson.SetRaw(string(base), "data", data)
	if err != nil {
		return "", fmt.Errorf("invalid client event data: %w", err)
	}
	return out, nil
}

// RenderPing renders the protocol-level liveness probe
func RenderPing() string {
	return `{"event":"pusher:ping","data":{}}`
}

// RenderPong renders the reply to a protocol-level liveness probe
func RenderPong() string {
	return `{"event":"pusher:pong","data":{}}`
}

func render(event string, data interface{}) (string, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to render %s data: %w", event, err)
	}
	msg, err := json.Marshal(Message{Event: event, Data: body})
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", event, err)
	}
	return string(msg), nil
}

// ExtractEvent returns the event name of an inbound message, empty when absent
func ExtractEvent(message []byte) string {
	return gjson.GetBytes(message, "event").String()
}

// ExtractChannel returns the routing channel of an inbound message. The second
// return reports whether the field was present at all: connection-level events
// carry no channel and must be distinguishable from an empty name.
func ExtractChannel(message []byte) (string, bool) {
	res := gjson.GetBytes(message, "channel")
	if !res.Exists() {
		return "", false
	}
	return res.String(), true
}

// ExtractData returns the data body of an inbound message as text. A
// double-encoded string body is unwrapped; an object body is returned as its
// raw JSON.
func ExtractData(message []byte) string {
	res := gjson.GetBytes(message, "data")
	if !res.Exists() {
		return ""
	}
	if res.Type == gjson.String {
		return res.String()
	}
	return res.Raw
}

// ParseAuthResponse pulls the signature and optional channel_data out of an
// authorization endpoint response body
func ParseAuthResponse(body string) (auth string, channelData string, err error) {
	if !gjson.Valid(body) {
		return "", "", fmt.Errorf("authorization response is not valid JSON")
	}
	sig := gjson.Get(body, "auth")
	if !sig.Exists() || sig.String() == "" {
		return "", "", fmt.Errorf("authorization response carries no auth signature")
	}
	return sig.String(), gjson.Get(body, "channel_data").String(), nil
}

// ParseConnectionEstablished extracts the socket id and the server-negotiated
// activity timeout from the handshake completion event. The data body arrives
// double-encoded from production servers; an object body is tolerated too.
func ParseConnectionEstablished(message []byte) (socketID string, activityTimeout time.Duration, err error) {
	body := ExtractData(message)
	if body == "" {
		return "", 0, fmt.Errorf("connection_established carries no data")
	}
	sid := gjson.Get(body, "socket_id")
	if !sid.Exists() || sid.String() == "" {
		return "", 0, fmt.Errorf("connection_established carries no socket_id")
	}
	if at := gjson.Get(body, "activity_timeout"); at.Exists() {
		activityTimeout = time.Duration(at.Int()) * time.Second
	}
	return sid.String(), activityTimeout, nil
}

// ParseErrorEvent extracts the human-readable message and protocol code from a
// pusher:error event
func ParseErrorEvent(message []byte) (text string, code int) {
	body := ExtractData(message)
	if body == "" {
		return "", 0
	}
	return gjson.Get(body, "message").String(), int(gjson.Get(body, "code").Int())
}

// IsClientEvent reports whether the event name uses the client event prefix
func IsClientEvent(event string) bool {
	return len(event) > len(ClientEventPrefix) && event[:len(ClientEventPrefix)] == ClientEventPrefix
}

// IsInternalEvent reports whether the event originates from the server rather
// than another subscriber
func IsInternalEvent(event string) bool {
	return len(event) >= len(InternalEventPrefix) && event[:len(InternalEventPrefix)] == InternalEventPrefix
}
