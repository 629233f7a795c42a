// Package entry stores the configured hub and runs the setup check that
// creates it.
//
// An Entry records one hub the bridge polls: its host and a display title
// taken from the device. Entries are persisted in the config_entries table
// through Repository. Flow validates a host against the device's info
// endpoint before an entry is stored, mapping every connectivity or shape
// failure to ErrCannotConnect.
//
// # Thread Safety
//
// SQLiteRepository and Flow are safe for concurrent use.
package entry
