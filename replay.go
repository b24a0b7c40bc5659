package landsync

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReplayKind distinguishes the two kinds of tuple a replay log carries.
type ReplayKind string

const (
	// ReplayKindPatch records the patches delivered to one viewer on one
	// tick (or a firstSync snapshot, wrapped the same way).
	ReplayKindPatch ReplayKind = "patch"
	// ReplayKindEvent records an event emitted during a tick.
	ReplayKindEvent ReplayKind = "event"
)

// ReplayRecord is one (tickID, kind, payload) tuple in a Land's external
// replay log.
type ReplayRecord struct {
	TickID    uint64          `json:"tickId"`
	Kind      ReplayKind      `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Source    string          `json:"source,omitempty"`
	Timestamp time.Time       `json:"ts"`
}

// ReplayRecorder accumulates ReplayRecords for a Land between flushes to
// durable storage.
type ReplayRecorder struct {
	records []ReplayRecord
	source  string
	tick    uint64
}

// NewReplayRecorder creates a recorder; source defaults to "server" and can
// be overridden per record batch with SetSource (e.g. "player:<id>" when
// recording the result of a specific action).
func NewReplayRecorder() *ReplayRecorder {
	return &ReplayRecorder{source: "server"}
}

// SetSource sets the source tag applied to subsequently recorded entries.
func (r *ReplayRecorder) SetSource(source string) { r.source = source }

// SetTick sets the tick ID applied to subsequently recorded entries.
func (r *ReplayRecorder) SetTick(tick uint64) { r.tick = tick }

// RecordPatches records a viewer's StateUpdate for the current tick. Updates
// of kind UpdateNoChange are skipped since there is nothing to replay.
func (r *ReplayRecorder) RecordPatches(update StateUpdate) error {
	if update.Kind == UpdateNoChange {
		return nil
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("landsync: marshal replay patch: %w", err)
	}
	r.records = append(r.records, ReplayRecord{
		TickID: r.tick, Kind: ReplayKindPatch, Payload: payload,
		Source: r.source, Timestamp: time.Now(),
	})
	return nil
}

// RecordEvent records an event emitted during the current tick.
func (r *ReplayRecorder) RecordEvent(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("landsync: marshal replay event: %w", err)
	}
	r.records = append(r.records, ReplayRecord{
		TickID: r.tick, Kind: ReplayKindEvent, Payload: payload,
		Source: r.source, Timestamp: time.Now(),
	})
	return nil
}

// Records returns all captured records without clearing them.
func (r *ReplayRecorder) Records() []ReplayRecord { return r.records }

// Drain returns all records and clears the buffer.
func (r *ReplayRecorder) Drain() []ReplayRecord {
	records := r.records
	r.records = nil
	return records
}

// Clear discards all captured records.
func (r *ReplayRecorder) Clear() { r.records = nil }

// MarshalRecords serializes records for storage.
func MarshalRecords(records []ReplayRecord) ([]byte, error) {
	return json.Marshal(records)
}

// UnmarshalRecords deserializes records read back from storage.
func UnmarshalRecords(data []byte) ([]ReplayRecord, error) {
	var records []ReplayRecord
	err := json.Unmarshal(data, &records)
	return records, err
}

// SnapshotReplayer reconstructs one viewer's sequence of StateSnapshots from
// a recorded patch log, for offline debugging or audit - it never drives a
// live Land, only reads its history back. Diffs are applied with
// ApplyPatches, so nested patch paths are not walked into.
type SnapshotReplayer struct {
	current StateSnapshot
}

// NewSnapshotReplayer creates a replayer starting from an empty snapshot.
func NewSnapshotReplayer() *SnapshotReplayer {
	return &SnapshotReplayer{current: StateSnapshot{}}
}

// State returns the snapshot as replayed so far.
func (sr *SnapshotReplayer) State() StateSnapshot { return sr.current }

// Reset clears replayed state for a fresh pass.
func (sr *SnapshotReplayer) Reset() { sr.current = StateSnapshot{} }

// Replay applies one ReplayRecord of kind patch, updating the replayed
// snapshot. Non-patch records are ignored by this replayer.
func (sr *SnapshotReplayer) Replay(record ReplayRecord) error {
	if record.Kind != ReplayKindPatch {
		return nil
	}
	var update StateUpdate
	if err := json.Unmarshal(record.Payload, &update); err != nil {
		return fmt.Errorf("landsync: decode replay patch: %w", err)
	}
	switch update.Kind {
	case UpdateFirstSync:
		sr.current = update.Snapshot
	case UpdateDiff:
		sr.current = ApplyPatches(sr.current, update.Patches)
	}
	return nil
}

// ReplayAll applies every record in order.
func (sr *SnapshotReplayer) ReplayAll(records []ReplayRecord) error {
	for _, record := range records {
		if err := sr.Replay(record); err != nil {
			return err
		}
	}
	return nil
}

// ReplayRange applies only records whose TickID falls within [fromTick, toTick].
func (sr *SnapshotReplayer) ReplayRange(records []ReplayRecord, fromTick, toTick uint64) error {
	for _, record := range records {
		if record.TickID < fromTick {
			continue
		}
		if record.TickID > toTick {
			break
		}
		if err := sr.Replay(record); err != nil {
			return err
		}
	}
	return nil
}
