package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the bridge owns.
const TopicPrefix = "mhub"

// Topics builds the topic names for one config entry.
//
//	topics := mqtt.Topics{EntryID: "3f2a..."}
//	topics.State("mhub_volume_a")   // mhub/3f2a.../mhub_volume_a/state
//	topics.Command("mhub_volume_a") // mhub/3f2a.../mhub_volume_a/set
type Topics struct {
	EntryID string
}

// Availability returns the retained online/offline topic for the entry.
func (t Topics) Availability() string {
	return fmt.Sprintf("%s/%s/availability", TopicPrefix, t.EntryID)
}

// State returns the retained state topic of an entity.
func (t Topics) State(uniqueID string) string {
	return fmt.Sprintf("%s/%s/%s/state", TopicPrefix, t.EntryID, uniqueID)
}

// Attributes returns the retained attributes topic of an entity.
func (t Topics) Attributes(uniqueID string) string {
	return fmt.Sprintf("%s/%s/%s/attributes", TopicPrefix, t.EntryID, uniqueID)
}

// Command returns the topic an entity accepts commands on.
func (t Topics) Command(uniqueID string) string {
	return fmt.Sprintf("%s/%s/%s/set", TopicPrefix, t.EntryID, uniqueID)
}

// AllCommands returns the wildcard matching every command topic of the entry.
func (t Topics) AllCommands() string {
	return fmt.Sprintf("%s/%s/+/set", TopicPrefix, t.EntryID)
}

// CommandUniqueID extracts the entity unique id from a command topic.
// It returns false when topic is not a command topic of this entry.
func (t Topics) CommandUniqueID(topic string) (string, bool) {
	prefix := fmt.Sprintf("%s/%s/", TopicPrefix, t.EntryID)
	rest, ok := strings.CutPrefix(topic, prefix)
	if !ok {
		return "", false
	}
	uid, ok := strings.CutSuffix(rest, "/set")
	if !ok || uid == "" || strings.Contains(uid, "/") {
		return "", false
	}
	return uid, true
}

// Discovery returns the Home Assistant discovery config topic:
// {prefix}/{component}/{node_id}/{object_id}/config.
func Discovery(prefix, component, nodeID, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", prefix, component, nodeID, objectID)
}
