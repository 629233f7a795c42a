// Package entity projects the coordinator's snapshot into the entities a
// home automation platform exposes for one hub.
//
// Every configured output gets three views: an output (source selection
// and soft power), a volume number and a mute switch. Two stateless power
// triggers and a chassis power switch complete the set. Views hold only
// their optimistic UI fields; everything else is recomputed from the
// current snapshot on Sync.
//
// Registry owns the views, listens for coordinator updates and fans state
// out to Publishers (MQTT, WebSocket). MQTTPublisher maps entities onto
// retained state topics, Home Assistant discovery configs and command
// topics.
//
// Unique ids:
//
//	mhub_output_{id}   source select and soft power
//	mhub_volume_{id}   0..100 volume
//	mhub_mute_{id}     mute switch
//	mhub_power_on      trigger: all outputs on
//	mhub_power_off     trigger: all outputs off
//	mhub_system_power  chassis power
package entity
