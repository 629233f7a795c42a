// Package influxdb records MHUB bridge telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library and writes:
//   - one mhub_poll_cycle point per refresh cycle (duration, success)
//   - mhub_zone points with the volume and mute state of each output
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry not configured
//	}
//	defer client.Close()
//
//	client.WriteCycle(host, elapsed, err)
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Asynchronous write failures are delivered to the
// callback set with SetOnError.
package influxdb
