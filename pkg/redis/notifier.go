package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
)

const (
	// MetricsStream receives one entry per stored snapshot.
	MetricsStream = "govcollector:metrics"
	// MetricsEvent is the event name carried on channels and stream entries.
	MetricsEvent = "metrics.collected"
)

// MetricsChannel returns the Pub/Sub channel for one organization's snapshots.
func MetricsChannel(organizationID string) string {
	return fmt.Sprintf("govcollector:%s:%s", organizationID, MetricsEvent)
}

// MetricsNotifier announces stored snapshots on Pub/Sub and appends them to
// MetricsStream so late readers can catch up.
type MetricsNotifier struct {
	Client *Client
}

// MetricsStored publishes m. Both writes are attempted; their errors are joined.
func (n *MetricsNotifier) MetricsStored(ctx context.Context, m *govmodels.Metrics) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode metrics %s: %w", m.ID, err)
	}

	pubErr := n.Client.Publish(ctx, MetricsChannel(m.OrganizationID), payload)
	_, xaddErr := n.Client.XAdd(ctx, MetricsStream, StreamValues(m, payload))
	return errors.Join(pubErr, xaddErr)
}

// StreamValues flattens a snapshot into stream entry fields.
func StreamValues(m *govmodels.Metrics, payload []byte) map[string]interface{} {
	return map[string]interface{}{
		"event":           MetricsEvent,
		"organization_id": m.OrganizationID,
		"metrics_id":      m.ID,
		"collected_at":    m.CollectedAt.UTC().Format(time.RFC3339Nano),
		"total_voters":    strconv.Itoa(m.TotalVoters),
		"payload":         string(payload),
	}
}
