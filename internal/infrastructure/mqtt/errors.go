package mqtt

import "errors"

// Broker link failures. Publish, Subscribe and Unsubscribe wrap the
// broker's own error in the matching sentinel.
var (
	ErrNotConnected      = errors.New("mqtt: broker link down")
	ErrConnectionFailed  = errors.New("mqtt: cannot reach broker")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")
)

// Caller mistakes, returned before anything is sent.
var (
	ErrInvalidQoS   = errors.New("mqtt: qos must be 0, 1 or 2")
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
