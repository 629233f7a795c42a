// Package mqtt provides MQTT client connectivity for the MHUB bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained availability with a Last Will for crash detection
//   - Message publishing with QoS guarantees
//   - Topic subscriptions, restored after a reconnect
//
// # Topics
//
// Every topic the bridge owns sits under mhub/{entry_id}:
//
//	mhub/{entry_id}/availability          online | offline (retained)
//	mhub/{entry_id}/{unique_id}/state     entity state (retained)
//	mhub/{entry_id}/{unique_id}/set       commands
//
// Home Assistant discovery configs are published to
// {prefix}/{component}/{node_id}/{unique_id}/config.
//
// # Usage
//
//	topics := mqtt.Topics{EntryID: entry.ID}
//	client, err := mqtt.Connect(cfg.MQTT, topics.Availability())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.PublishRetained(topics.State("mhub_volume_a"), []byte(`{"state":57}`))
package mqtt
