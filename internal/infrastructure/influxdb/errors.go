package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when telemetry is switched off;
	// the bridge runs without cycle metrics.
	ErrDisabled = errors.New("influxdb: telemetry disabled")

	// ErrConnectionFailed wraps the ping failure seen by Connect.
	ErrConnectionFailed = errors.New("influxdb: cannot reach server")

	// ErrNotConnected is reported by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: not connected")
)
