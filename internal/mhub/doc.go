// Package mhub polls and controls an HDAnywhere MHUB AV matrix.
//
// The package is built from four pieces:
//   - Client issues GET requests to the hub and decodes its loosely typed
//     JSON, returning an empty Document for bodies it cannot decode.
//   - Derive and the Snapshot accessors turn the info and state payloads
//     into Capabilities, Zones and port labels with fixed fallback rules.
//   - Coordinator owns the single Snapshot. It refreshes on a ticker or on
//     demand, coalesces concurrent requests into one cycle, swaps the
//     info/state pair atomically and fans updates out to listeners.
//   - Dispatcher sends control requests as detached tasks, each followed
//     by a coordinator refresh.
//
// # Device endpoints
//
//	GET /api/data/100/                          info (model, ports)
//	GET /api/data/200/                          state (zones)
//	GET /api/control/power/a/1/                 power capability probe
//	GET /api/control/switch/{output}/{input}/   route an input
//	GET /api/control/volume/{output}/{0-100}/   set volume
//	GET /api/control/mute/{output}/{bool}/      set mute
//	GET /api/power/{0|1}/                       power all outputs
//	GET /api/control/power/{0|1}/               chassis power
//
// # Usage
//
//	client := mhub.NewClient(host, mhub.ClientOptions{Logger: log})
//	coord, _ := mhub.NewCoordinator(mhub.CoordinatorOptions{Client: client})
//	if err := coord.FirstRefresh(ctx); err != nil {
//	    return err
//	}
//	coord.Start(ctx)
//	defer coord.Stop()
//
//	disp, _ := mhub.NewDispatcher(mhub.DispatcherOptions{Client: client, Refresher: coord})
//	defer disp.Close()
//	disp.Dispatch(mhub.VolumePath("a", 57))
package mhub
