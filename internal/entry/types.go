package entry

import "time"

// Entry is one configured hub.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Host      string    `json:"host"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeviceInfo is what a successful validation learned about the device.
type DeviceInfo struct {
	Host       string `json:"host"`
	Title      string `json:"title"`
	APIVersion string `json:"api_version"`
}
