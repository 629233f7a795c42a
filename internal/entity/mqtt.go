package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/mhub-bridge/internal/infrastructure/mqtt"
)

// MQTTClient is the broker surface the publisher needs. *mqtt.Client
// implements it.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// CommandRouter resolves and runs entity commands. *Registry implements it.
type CommandRouter interface {
	Get(uniqueID string) (Entity, bool)
	Handle(ctx context.Context, uniqueID string, cmd Command) error
}

// MQTTPublisherOptions configures an MQTTPublisher.
type MQTTPublisherOptions struct {
	Client MQTTClient
	Topics mqtt.Topics
	QoS    byte

	DiscoveryEnabled bool
	DiscoveryPrefix  string
	NodeID           string

	Logger Logger
}

// MQTTPublisher maps entities onto MQTT: retained state and attribute
// topics, a shared availability topic, Home Assistant discovery configs and
// per-entity command topics.
type MQTTPublisher struct {
	client MQTTClient
	topics mqtt.Topics
	qos    byte

	discovery bool
	prefix    string
	nodeID    string

	logger Logger

	inflight sync.WaitGroup
}

// NewMQTTPublisher validates opts and returns a publisher.
func NewMQTTPublisher(opts MQTTPublisherOptions) (*MQTTPublisher, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("mqtt client is required")
	}
	if opts.Topics.EntryID == "" {
		return nil, fmt.Errorf("entry id is required")
	}
	if opts.DiscoveryEnabled && opts.DiscoveryPrefix == "" {
		return nil, fmt.Errorf("discovery prefix is required when discovery is enabled")
	}
	p := &MQTTPublisher{
		client:    opts.Client,
		topics:    opts.Topics,
		qos:       opts.QoS,
		discovery: opts.DiscoveryEnabled,
		prefix:    opts.DiscoveryPrefix,
		nodeID:    opts.NodeID,
		logger:    opts.Logger,
	}
	if p.nodeID == "" {
		p.nodeID = opts.Topics.EntryID
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	return p, nil
}

// PublishState implements Publisher.
func (p *MQTTPublisher) PublishState(s State) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding state of %s: %w", s.UniqueID, err)
	}
	if err := p.client.Publish(p.topics.State(s.UniqueID), payload, p.qos, true); err != nil {
		return fmt.Errorf("publishing state of %s: %w", s.UniqueID, err)
	}

	attrs := s.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	payload, err = json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encoding attributes of %s: %w", s.UniqueID, err)
	}
	if err := p.client.Publish(p.topics.Attributes(s.UniqueID), payload, p.qos, true); err != nil {
		return fmt.Errorf("publishing attributes of %s: %w", s.UniqueID, err)
	}
	return nil
}

// PublishAvailability implements Publisher.
func (p *MQTTPublisher) PublishAvailability(available bool) error {
	payload := mqtt.PayloadOffline
	if available {
		payload = mqtt.PayloadOnline
	}
	if err := p.client.Publish(p.topics.Availability(), []byte(payload), p.qos, true); err != nil {
		return fmt.Errorf("publishing availability: %w", err)
	}
	return nil
}

// PublishDiscovery publishes a retained discovery config for every entity.
// It is a no-op when discovery is disabled.
func (p *MQTTPublisher) PublishDiscovery(entities []Entity, dev DeviceInfo) error {
	if !p.discovery {
		return nil
	}
	var errs []error
	for _, e := range entities {
		msg := Discovery(e, dev, p.topics, p.prefix, p.nodeID)
		payload, err := json.Marshal(msg.Payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("encoding discovery of %s: %w", e.UniqueID(), err))
			continue
		}
		if err := p.client.Publish(msg.Topic, payload, p.qos, true); err != nil {
			errs = append(errs, fmt.Errorf("publishing discovery of %s: %w", e.UniqueID(), err))
		}
	}
	if len(errs) == 0 {
		p.logger.Info("discovery published", "entities", len(entities), "prefix", p.prefix)
	}
	return errors.Join(errs...)
}

// Subscribe routes every command topic of the entry to router. Each
// command runs in its own goroutine so the broker callback returns at once;
// rejected commands are logged. ctx scopes the commands it starts.
func (p *MQTTPublisher) Subscribe(ctx context.Context, router CommandRouter) error {
	return p.client.Subscribe(p.topics.AllCommands(), p.qos, func(topic string, payload []byte) error {
		p.inflight.Add(1)
		go func() {
			defer p.inflight.Done()
			if err := p.handleCommand(ctx, router, topic, payload); err != nil {
				p.logger.Warn("mqtt command rejected", "topic", topic, "error", err)
			}
		}()
		return nil
	})
}

// Unsubscribe stops command delivery and waits for running commands.
func (p *MQTTPublisher) Unsubscribe() error {
	err := p.client.Unsubscribe(p.topics.AllCommands())
	p.inflight.Wait()
	return err
}

func (p *MQTTPublisher) handleCommand(ctx context.Context, router CommandRouter, topic string, payload []byte) error {
	uid, ok := p.topics.CommandUniqueID(topic)
	if !ok {
		return fmt.Errorf("not a command topic: %s", topic)
	}
	e, ok := router.Get(uid)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	cmd, err := ParsePayload(e.Platform(), payload)
	if err != nil {
		return fmt.Errorf("command for %s: %w", uid, err)
	}
	p.logger.Debug("mqtt command", "entity", uid, "action", cmd.Action)
	return router.Handle(ctx, uid, cmd)
}
