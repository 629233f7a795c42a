package mqtt

import "fmt"

// maxPayloadSize caps one message. Discovery configs are the largest thing
// the bridge sends and stay well under it.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to acknowledge it.
// Entity state, attributes, availability and discovery configs are
// published retained; command echoes never are.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %s: %d byte payload over the %d byte limit",
			ErrPublishFailed, topic, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}
	return await(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// PublishRetained publishes a retained message at the configured QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, c.QoS(), true)
}
