package split

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trailnet/trailnet/internal/staging"
)

// TrackingRecord is one entry of the GeometryTrackingRecord (spec.md §3):
// which service inserted a trail row and, if it is a segment, which
// original trail it replaces.
type TrackingRecord struct {
	InsertedBy    string
	ReplacementOf string // empty unless this row is a split/merge segment
}

// Counters are the running totals spec.md §4.E requires: totals, by
// service, by op kind, success rate, cumulative length difference.
type Counters struct {
	Total                  int
	Success                int
	Failed                 int
	ByService              map[string]int
	ByKind                 map[staging.SplitOpKind]int
	CumulativeLengthDiffKm float64
}

// SuccessRate returns Success/Total, or 0 if Total is 0.
func (c Counters) SuccessRate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Success) / float64(c.Total)
}

// Manager mediates all mutations to the trail set for one pipeline run
// (spec.md §4.E). It is an explicit, owned value — never a package-level
// singleton (spec.md §9 "singleton mutable manager -> explicit context") —
// constructed once per run and passed by reference to every component that
// needs to mutate trails.
//
// Concurrency: single-threaded by contract (spec.md §5); Manager serializes
// its own state with a mutex only to make that contract safe to violate
// accidentally, not to support concurrent mutation.
type Manager struct {
	mu sync.Mutex

	store    staging.Store
	splitter *Splitter
	log      *logrus.Entry

	counters Counters
	tracking map[string]TrackingRecord // trail_id -> record
	deleted  map[string]bool           // trail ids deleted, awaiting a matched insert
	entries  []staging.SplitOperationLog
}

// NewManager builds a Manager bound to store for the duration of one run.
func NewManager(store staging.Store, cfg Config, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Manager{
		store:    store,
		splitter: NewSplitter(store, cfg),
		log:      log,
		counters: Counters{
			ByService: make(map[string]int),
			ByKind:    make(map[staging.SplitOpKind]int),
		},
		tracking: make(map[string]TrackingRecord),
		deleted:  make(map[string]bool),
	}
}

// Split forwards op to the splitter (spec.md §4.D), then records the
// outcome: on success, every new segment is tracked against the deleted
// original; on failure, the original trail is left untouched and a failed
// SplitOperationLog is appended.
func (m *Manager) Split(ctx context.Context, serviceName string, op TrailSplitOperation) (Outcome, error) {
	outcome, err := m.splitter.Split(ctx, op)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := staging.SplitOperationLog{
		OpID:              newTrailID(),
		Timestamp:         time.Now().UTC(),
		ServiceName:       serviceName,
		OpKind:            staging.OpSplit,
		OriginalTrailID:   op.OriginalTrailID,
		OriginalTrailName: op.OriginalTrailName,
		Result:            outcome.Result,
	}

	if outcome.State == StateOK {
		// The deletion is matched in the same step as the inserts below, so
		// it never enters m.deleted at all.
		for _, seg := range outcome.Segments {
			m.tracking[seg.TrailID] = TrackingRecord{InsertedBy: serviceName, ReplacementOf: op.OriginalTrailID}
		}
		m.counters.Success++
		m.counters.CumulativeLengthDiffKm += outcome.Result.LengthDiffKm
		m.log.WithFields(logrus.Fields{
			"op_id":    entry.OpID,
			"trail_id": op.OriginalTrailID,
			"segments": len(outcome.Segments),
		}).Info("split committed")
	} else {
		m.counters.Failed++
		entry.Metadata = map[string]string{"failure_reason": outcome.FailureReason}
		m.log.WithFields(logrus.Fields{
			"op_id":    entry.OpID,
			"trail_id": op.OriginalTrailID,
			"reason":   outcome.FailureReason,
		}).Warn("split rolled back")
	}

	m.recordLocked(serviceName, staging.OpSplit, entry)
	if logErr := m.store.AppendSplitLog(ctx, entry); logErr != nil {
		return outcome, fmt.Errorf("append split log: %w", logErr)
	}
	return outcome, err
}

// Notify records an insert/delete/snap/merge mutation performed by another
// service, so the tracker and counters stay consistent with operations the
// manager did not itself execute the geometry for (spec.md §4.E "Accepts
// insert, delete, snap, merge notifications from other services for
// logging").
func (m *Manager) Notify(ctx context.Context, serviceName string, kind staging.SplitOpKind, trailID, trailName string, result staging.SplitOperationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case staging.OpDelete:
		if _, tracked := m.tracking[trailID]; !tracked {
			m.deleted[trailID] = true
		}
	case staging.OpInsert, staging.OpMerge:
		m.tracking[trailID] = TrackingRecord{InsertedBy: serviceName}
		delete(m.deleted, trailID)
	}

	entry := staging.SplitOperationLog{
		OpID:              newTrailID(),
		Timestamp:         time.Now().UTC(),
		ServiceName:       serviceName,
		OpKind:            kind,
		OriginalTrailID:   trailID,
		OriginalTrailName: trailName,
		Result:            result,
	}
	m.recordLocked(serviceName, kind, entry)
	return m.store.AppendSplitLog(ctx, entry)
}

func (m *Manager) recordLocked(serviceName string, kind staging.SplitOpKind, entry staging.SplitOperationLog) {
	m.counters.Total++
	m.counters.ByService[serviceName]++
	m.counters.ByKind[kind]++
	m.entries = append(m.entries, entry)
}

// Counters returns a snapshot of the running counters.
func (m *Manager) Counters() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.counters
	out.ByService = cloneCounts(m.counters.ByService)
	byKind := make(map[staging.SplitOpKind]int, len(m.counters.ByKind))
	for k, v := range m.counters.ByKind {
		byKind[k] = v
	}
	out.ByKind = byKind
	return out
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ValidateGeometryIntegrity implements spec.md §4.E's end-of-pipeline
// check: every deletion must be matched by at least one insert carrying
// original_trail_id = deleted. It does not fail on length drift: the
// cumulative length difference is only logged at debug level when
// aggregateTolerancePercent is positive.
func (m *Manager) ValidateGeometryIntegrity(aggregateTolerancePercent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.deleted) > 0 {
		ids := make([]string, 0, len(m.deleted))
		for id := range m.deleted {
			ids = append(ids, id)
		}
		return fmt.Errorf("split: integrity violation: %d deletion(s) without a matching insert: %v", len(ids), ids)
	}

	if aggregateTolerancePercent > 0 && m.counters.CumulativeLengthDiffKm != 0 {
		// Aggregate drift is informational here; callers that track a
		// baseline total length compare it against this cumulative figure.
		m.log.WithField("cumulative_length_diff_km", m.counters.CumulativeLengthDiffKm).Debug("geometry integrity check: cumulative drift")
	}
	return nil
}

// Summary renders a human-readable report of failed operations, as spec.md
// §7 requires ("the central split manager emits a human-readable summary
// enumerating failed trails by id and name").
func (m *Manager) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.counters.Failed == 0 {
		return fmt.Sprintf("split manager: %d operations, all succeeded", m.counters.Total)
	}
	out := fmt.Sprintf("split manager: %d operations, %d failed:\n", m.counters.Total, m.counters.Failed)
	for _, e := range m.entries {
		if !e.Result.OK {
			out += fmt.Sprintf("  - %s (%s): %s\n", e.OriginalTrailID, e.OriginalTrailName, e.Result.Error)
		}
	}
	return out
}
