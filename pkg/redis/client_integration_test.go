//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
)

func startRedis(t *testing.T) Config {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return Config{Host: host, Port: port.Port(), StreamMaxLen: 100}
}

func TestMetricsNotifier_PublishesAndAppends(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, zaptest.NewLogger(t), startRedis(t))
	require.NoError(t, err)
	defer client.Close()

	sub := client.client.Subscribe(ctx, MetricsChannel("ens"))
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	notifier := &MetricsNotifier{Client: client}
	m := &govmodels.Metrics{ID: "m1", OrganizationID: "ens", CollectedAt: time.Now().UTC(), TotalVoters: 3}
	require.NoError(t, notifier.MetricsStored(ctx, m))

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, `"id":"m1"`)
	case <-time.After(5 * time.Second):
		t.Fatal("no pub/sub message received")
	}

	entries, err := client.XRange(ctx, MetricsStream, "-", "+", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "m1", entries[0].Values["metrics_id"])
}
