package harness

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bitechdev/ChannelSpec/pkg/logger"
	"github.com/bitechdev/ChannelSpec/pkg/protocol"
)

// AuthEndpoint implements the server half of the subscription authorization
// exchange: it receives the form the client posts for a private or presence
// channel and answers with the signature the socket needs. It signs every
// request it can parse, so it must only ever back a local test client.
type AuthEndpoint struct {
	appKey    string
	appSecret string
}

// NewAuthEndpoint creates an endpoint signing with the given application key
// and secret. The key must match the one the client connected with, the
// secret must match the one the socket server verifies against.
func NewAuthEndpoint(appKey, appSecret string) *AuthEndpoint {
	return &AuthEndpoint{appKey: appKey, appSecret: appSecret}
}

// presenceMember is the identity a presence subscription announces
type presenceMember struct {
	UserID   string            `json:"user_id"`
	UserInfo map[string]string `json:"user_info,omitempty"`
}

// authResponse is the body the client's authorizer parses
type authResponse struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

// Sign computes the authorization token for one subscription attempt.
// Private channels sign "socketID:channelName", presence channels append
// the member payload.
func (a *AuthEndpoint) Sign(socketID, channelName, channelData string) string {
	toSign := socketID + ":" + channelName
	if channelData != "" {
		toSign += ":" + channelData
	}
	mac := hmac.New(sha256.New, []byte(a.appSecret))
	mac.Write([]byte(toSign))
	return a.appKey + ":" + hex.EncodeToString(mac.Sum(nil))
}

// ServeHTTP answers a subscription authorization request
func (a *AuthEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, `{"error":"malformed_form"}`, http.StatusBadRequest)
		return
	}

	channelName := r.PostFormValue("channel_name")
	socketID := r.PostFormValue("socket_id")
	if channelName == "" || socketID == "" {
		http.Error(w, `{"error":"channel_name and socket_id are required"}`, http.StatusBadRequest)
		return
	}

	// Presence subscriptions carry the member identity. The harness has no
	// user store, so the socket id doubles as the user id.
	var channelData string
	if strings.HasPrefix(channelName, protocol.PresenceChannelPrefix) {
		payload, err := json.Marshal(presenceMember{
			UserID:   socketID,
			UserInfo: map[string]string{"name": "harness"},
		})
		if err != nil {
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		channelData = string(payload)
	}

	resp := authResponse{
		Auth:        a.Sign(socketID, channelName, channelData),
		ChannelData: channelData,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Warn("[Harness] Failed to write auth response. %v", err)
		return
	}
	logger.Debug("[Harness] Signed subscription for %s (socket %s)", channelName, socketID)
}
