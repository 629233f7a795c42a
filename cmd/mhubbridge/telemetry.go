package main

import (
	"github.com/nerrad567/mhub-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/mhub-bridge/internal/mhub"
)

// cycleRecorder writes every refresh cycle to InfluxDB.
type cycleRecorder struct {
	influx *influxdb.Client
}

func (r cycleRecorder) ObserveCycle(res mhub.CycleResult) {
	r.influx.WriteCycle(res.Host, res.Duration, res.Err)
}
