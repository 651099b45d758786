package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurements written by the client.
const (
	MeasurementScrape  = "driver_scrape"
	MeasurementCommand = "driver_command"
)

// RecordScrape writes one driver_scrape summary: how many points were read,
// how many failed and how long the scrape took. Point values themselves
// are not stored.
func (c *Client) RecordScrape(device string, values map[string]any, failed int, took time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(MeasurementScrape,
		map[string]string{"device": device},
		map[string]any{
			"ok":          len(values),
			"failed":      failed,
			"duration_ms": float64(took) / float64(time.Millisecond),
		},
		time.Now()))
}

// RecordCommand writes one driver_command row for a set, get or revert.
func (c *Client) RecordCommand(device, point, action string, err error, took time.Duration) {
	if !c.IsConnected() {
		return
	}
	fields := map[string]any{
		"success":     err == nil,
		"duration_ms": float64(took) / float64(time.Millisecond),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	c.writeAPI.WritePoint(write.NewPoint(MeasurementCommand,
		map[string]string{"device": device, "point": point, "action": action},
		fields,
		time.Now()))
}
