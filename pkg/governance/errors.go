package governance

import (
	"errors"
	"fmt"
)

// ErrNoSpace is returned when an organization has no governance space configured.
var ErrNoSpace = errors.New("organization has no governance space")

// Stage names the step of a collection that failed.
type Stage string

const (
	StageListProposals  Stage = "list_proposals"
	StageStoreProposals Stage = "store_proposals"
	StageStoreMetrics   Stage = "store_metrics"
)

// CollectError is an organization-level failure: the collection was abandoned
// at Stage and no snapshot was written for this cycle.
type CollectError struct {
	OrganizationID string
	Stage          Stage
	Err            error
}

func (e *CollectError) Error() string {
	return fmt.Sprintf("collect %s: %s: %v", e.OrganizationID, e.Stage, e.Err)
}

func (e *CollectError) Unwrap() error { return e.Err }
