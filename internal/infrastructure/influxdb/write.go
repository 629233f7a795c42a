package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementPollCycle = "mhub_poll_cycle"
	MeasurementZone      = "mhub_zone"
)

// WriteCycle records one refresh cycle against host: its duration and
// whether it succeeded. A failed cycle carries the error text as a field.
func (c *Client) WriteCycle(host string, duration time.Duration, err error) {
	fields := map[string]any{
		"duration_ms": float64(duration) / float64(time.Millisecond),
		"success":     err == nil,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	c.WritePoint(MeasurementPollCycle, map[string]string{"host": host}, fields)
}

// WriteZone records the audio state of one output zone.
func (c *Client) WriteZone(host, outputID string, volume int, muted bool) {
	c.WritePoint(MeasurementZone,
		map[string]string{"host": host, "output": outputID},
		map[string]any{"volume": volume, "muted": muted},
	)
}

// WritePoint writes a point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, c.now()))
}
