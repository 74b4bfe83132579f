package collector

import (
	"context"
	"time"

	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
)

// Job names, also used as keys of App.LastRuns.
const (
	JobGovernance = "governance"
	JobTreasury   = "treasury"
	JobProtocol   = "protocol"
)

// OrganizationCollector produces one metrics snapshot for one organization.
type OrganizationCollector interface {
	Collect(ctx context.Context, org *govmodels.Organization) (*govmodels.Metrics, error)
}

// RunSummary describes one pass over every tracked organization.
type RunSummary struct {
	Job        string        `json:"job"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Processed  int           `json:"processed"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	FailedOrgs []string      `json:"failed_orgs,omitempty"`
}

// RunStatus is the latest collection outcome of one organization.
type RunStatus struct {
	OrganizationID string    `json:"organization_id"`
	LastStarted    time.Time `json:"last_started"`
	LastFinished   time.Time `json:"last_finished"`
	LastMetricsID  string    `json:"last_metrics_id,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	Successes      int       `json:"successes"`
	Failures       int       `json:"failures"`
}
