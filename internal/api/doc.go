// Package api provides the HTTP REST API and WebSocket event stream of the
// MHUB bridge.
//
// Routes (all under /api/v1):
//
//	GET  /health                   liveness and hub availability
//	GET  /device                   config entry, capabilities and status
//	GET  /device/snapshot          last raw info/state payloads
//	POST /device/refresh           run (or join) a refresh cycle
//	GET  /entities                 every entity state
//	GET  /entities/{id}            one entity state
//	POST /entities/{id}/command    {"action": "...", "value": ...}
//	GET  /entries                  stored config entries
//	POST /entries/validate         check a host without storing it
//	GET  /ws                       event stream
//
// WebSocket clients subscribe to channels:
//
//	{"type": "subscribe", "id": "1", "payload": {"channels": ["entity.state_changed"]}}
//
// Channels are entity.state_changed, device.updated and device.unavailable.
//
// The API has no authentication; bind it to a trusted network.
package api
