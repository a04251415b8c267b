package channelspec

import "errors"

var (
	// ErrNilConnection is returned when bookkeeping is created without a
	// connection
	ErrNilConnection = errors.New("connection is required")

	// ErrNilChannel is returned when a nil channel is subscribed
	ErrNilChannel = errors.New("channel is required")

	// ErrNilListener is returned when an event is bound without a listener
	ErrNilListener = errors.New("listener is required")

	// ErrNilAuthorizer is returned when a restricted channel is created
	// without an authorizer
	ErrNilAuthorizer = errors.New("authorizer is required")

	// ErrChannelNameRequired is returned for empty channel names
	ErrChannelNameRequired = errors.New("channel name is required")

	// ErrInvalidChannelName is returned when a channel name does not fit the
	// requested channel type or contains forbidden characters
	ErrInvalidChannelName = errors.New("invalid channel name")

	// ErrEventNameRequired is returned for empty event names
	ErrEventNameRequired = errors.New("event name is required")

	// ErrInternalEventBinding is returned when a listener is bound to a
	// server-internal event
	ErrInternalEventBinding = errors.New("cannot bind to internal events")

	// ErrDuplicateChannel is returned when a channel name is subscribed twice
	ErrDuplicateChannel = errors.New("already subscribed to channel")

	// ErrUnknownChannel is returned when an unsubscribed channel name is
	// unsubscribed
	ErrUnknownChannel = errors.New("no subscription for channel")

	// ErrInvalidTriggerEvent is returned when a triggered event lacks the
	// client event prefix
	ErrInvalidTriggerEvent = errors.New("client events must use the client- prefix")

	// ErrNotSubscribed is returned when an event is triggered before the
	// subscription is acknowledged
	ErrNotSubscribed = errors.New("channel is not subscribed")

	// ErrNotConnected is returned when an event is triggered while the
	// connection is down
	ErrNotConnected = errors.New("connection is not established")

	// ErrTriggerRateExceeded is returned when client events are triggered
	// faster than the allowed rate
	ErrTriggerRateExceeded = errors.New("client event rate exceeded")
)
