package dnsinflux

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/open-control-systems/dnssd-bridge/components/core"
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnscore"
)

// DBParams provides various configuration options for influxDB.
type DBParams struct {
	URL    string
	Org    string
	Token  string
	Bucket string
}

// EventHandler persists discovery events in influxDB.
type EventHandler struct {
	ctx      context.Context
	dbClient influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewEventHandler is an initialization of EventHandler.
//
// Parameters:
//   - ctx - parent context.
//   - params - various influxDB configuration parameters.
func NewEventHandler(ctx context.Context, params DBParams) *EventHandler {
	dbClient := influxdb2.NewClient(params.URL, params.Token)

	return &EventHandler{
		ctx:      ctx,
		dbClient: dbClient,
		writeAPI: dbClient.WriteAPIBlocking(params.Org, params.Bucket),
	}
}

// HandlePublish persists the publish event.
func (h *EventHandler) HandlePublish(record *dnscore.ServiceRecord) {
	point := influxdb2.NewPoint("dnssd_event",
		map[string]string{
			"event": "publish",
			"type":  record.Type + "." + record.Protocol.String(),
		},
		map[string]any{
			"instance": record.Name,
			"port":     int(record.Port),
		},
		time.Now())

	h.writePoint(point)
}

// HandleRemove persists the remove event.
func (h *EventHandler) HandleRemove() {
	point := influxdb2.NewPoint("dnssd_event",
		map[string]string{"event": "remove"},
		map[string]any{"count": 1},
		time.Now())

	h.writePoint(point)
}

// HandleBrowse persists the browse delivery event.
func (h *EventHandler) HandleBrowse(serviceType string, count int) {
	point := influxdb2.NewPoint("dnssd_event",
		map[string]string{
			"event": "browse",
			"type":  serviceType,
		},
		map[string]any{"count": count},
		time.Now())

	h.writePoint(point)
}

// HandleResolve persists the resolve delivery event.
func (h *EventHandler) HandleResolve(instance string, addr *dnscore.DiscoveryAddress) {
	point := influxdb2.NewPoint("dnssd_event",
		map[string]string{"event": "resolve"},
		map[string]any{
			"instance": instance,
			"addr":     addr.IP.String(),
		},
		time.Now())

	h.writePoint(point)
}

// Close releases the influxDB client resources.
func (h *EventHandler) Close() error {
	h.dbClient.Close()

	return nil
}

func (h *EventHandler) writePoint(point *write.Point) {
	if err := h.writeAPI.WritePoint(h.ctx, point); err != nil {
		core.LogErr.Printf("dnssd-influx: failed to write point: %v\n", err)
	}
}
