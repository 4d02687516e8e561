package history

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/strefethen/schedule-maker-go/internal/schedule"
)

// Engine implements debounced snapshot-based undo/redo. Mutations request a
// capture; the engine waits for the edit burst to settle, then records the
// full schedule state as one undo step. Undo and redo replay whole snapshots
// through the store's restore path.
type Engine struct {
	logger   *log.Logger
	repo     *Repository
	store    *schedule.Service
	debounce time.Duration
	cap      int

	mu            sync.Mutex
	timer         *time.Timer
	pendingReason string
	restoring     bool
	baselines     map[int64]baseline // scheduleID -> last recorded state
}

// baseline is the last recorded state of a schedule. raw is the exact JSON
// stored as prev on the next step; key is the timestamp-insensitive
// fingerprint used for no-op detection.
type baseline struct {
	raw string
	key string
}

func baselineOf(raw string) (baseline, error) {
	var state schedule.StateSnapshot
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return baseline{}, err
	}
	key, err := state.Fingerprint()
	if err != nil {
		return baseline{}, err
	}
	return baseline{raw: raw, key: key}, nil
}

// NewEngine creates the history engine and registers it as the store's
// capture requester.
func NewEngine(dbPair DBPair, store *schedule.Service, logger *log.Logger, debounce time.Duration, cap int) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	if cap <= 0 {
		cap = 50
	}

	e := &Engine{
		logger:    logger,
		repo:      NewRepository(dbPair),
		store:     store,
		debounce:  debounce,
		cap:       cap,
		baselines: map[int64]baseline{},
	}
	store.SetCaptureRequester(e)
	return e
}

// Repository exposes the underlying repository (used by tests and routes).
func (e *Engine) Repository() *Repository {
	return e.repo
}

// Prime establishes the undo baseline for the active schedule. Called once
// at startup so the first edit after boot diffs against pre-edit state.
func (e *Engine) Prime() error {
	current, err := e.store.EnsureCurrentSchedule()
	if err != nil {
		return err
	}
	_, err = e.baselineFor(current.ID)
	return err
}

// RequestCapture schedules a debounced snapshot. Rapid successive calls
// collapse into one capture carrying the most recent reason. Calls made
// while a restore is replaying state are ignored.
func (e *Engine) RequestCapture(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.restoring {
		return
	}

	e.pendingReason = reason
	if e.timer == nil {
		e.timer = time.AfterFunc(e.debounce, e.fire)
		return
	}
	e.timer.Reset(e.debounce)
}

func (e *Engine) fire() {
	e.mu.Lock()
	reason := e.pendingReason
	e.pendingReason = ""
	e.timer = nil
	e.mu.Unlock()

	if err := e.CaptureNow(reason); err != nil {
		e.logger.Printf("snapshot capture failed: %v", err)
	}
}

// Flush captures any pending debounced snapshot immediately.
func (e *Engine) Flush() error {
	e.mu.Lock()
	if e.timer == nil {
		e.mu.Unlock()
		return nil
	}
	e.timer.Stop()
	e.timer = nil
	reason := e.pendingReason
	e.pendingReason = ""
	e.mu.Unlock()

	return e.CaptureNow(reason)
}

// Stop cancels any pending capture without recording it.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.pendingReason = ""
}

// CaptureNow records the active schedule's state as an undo step. Identical
// consecutive states are skipped, so a burst of edits that nets out to no
// change leaves the log untouched.
func (e *Engine) CaptureNow(reason string) error {
	current, err := e.store.EnsureCurrentSchedule()
	if err != nil {
		return err
	}

	state, err := e.store.CaptureState(current.ID)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	next, err := json.Marshal(state)
	if err != nil {
		return err
	}
	key, err := state.Fingerprint()
	if err != nil {
		return err
	}

	base, err := e.baselineFor(current.ID)
	if err != nil {
		return err
	}
	if base.key == key {
		return nil
	}

	cursor, err := e.cursorFor(current.ID)
	if err != nil {
		return err
	}

	// A new step after undo discards the redo branch.
	if err := e.repo.PruneAfter(current.ID, cursor); err != nil {
		return err
	}

	id, err := e.repo.Insert(current.ID, base.raw, string(next), reason)
	if err != nil {
		return err
	}
	if err := e.repo.SetCursor(&id, current.ID); err != nil {
		return err
	}
	if err := e.repo.TrimToCap(current.ID, e.cap); err != nil {
		return err
	}

	e.mu.Lock()
	e.baselines[current.ID] = baseline{raw: string(next), key: key}
	e.mu.Unlock()

	return nil
}

// Undo reverts the last recorded step. Returns false when there is nothing
// to undo.
func (e *Engine) Undo() (bool, error) {
	if err := e.Flush(); err != nil {
		return false, err
	}

	current, err := e.store.EnsureCurrentSchedule()
	if err != nil {
		return false, err
	}

	cursor, err := e.cursorFor(current.ID)
	if err != nil {
		return false, err
	}
	if cursor == 0 {
		return false, nil
	}

	snapshot, err := e.repo.Get(cursor)
	if err != nil {
		return false, err
	}
	if snapshot == nil || snapshot.Prev == "" {
		return false, nil
	}

	if err := e.apply(snapshot.Prev); err != nil {
		return false, err
	}

	previous, err := e.repo.Before(current.ID, cursor)
	if err != nil {
		return false, err
	}
	var newCursor *int64
	if previous != nil {
		newCursor = &previous.ID
	}
	if err := e.repo.SetCursor(newCursor, current.ID); err != nil {
		return false, err
	}

	base, err := baselineOf(snapshot.Prev)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	e.baselines[current.ID] = base
	e.mu.Unlock()

	return true, nil
}

// Redo reapplies the step most recently undone. Returns false when there is
// nothing to redo.
func (e *Engine) Redo() (bool, error) {
	if err := e.Flush(); err != nil {
		return false, err
	}

	current, err := e.store.EnsureCurrentSchedule()
	if err != nil {
		return false, err
	}

	cursor, err := e.cursorFor(current.ID)
	if err != nil {
		return false, err
	}

	next, err := e.repo.After(current.ID, cursor)
	if err != nil {
		return false, err
	}
	if next == nil {
		return false, nil
	}

	if err := e.apply(next.Next); err != nil {
		return false, err
	}

	if err := e.repo.SetCursor(&next.ID, current.ID); err != nil {
		return false, err
	}

	base, err := baselineOf(next.Next)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	e.baselines[current.ID] = base
	e.mu.Unlock()

	return true, nil
}

// CanUndo reports whether an undo step is available.
func (e *Engine) CanUndo() (bool, error) {
	current, err := e.store.EnsureCurrentSchedule()
	if err != nil {
		return false, err
	}
	cursor, err := e.cursorFor(current.ID)
	if err != nil {
		return false, err
	}
	return cursor != 0, nil
}

// CanRedo reports whether a redo step is available.
func (e *Engine) CanRedo() (bool, error) {
	current, err := e.store.EnsureCurrentSchedule()
	if err != nil {
		return false, err
	}
	cursor, err := e.cursorFor(current.ID)
	if err != nil {
		return false, err
	}
	next, err := e.repo.After(current.ID, cursor)
	if err != nil {
		return false, err
	}
	return next != nil, nil
}

func (e *Engine) apply(stateJSON string) error {
	var state schedule.StateSnapshot
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return err
	}

	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.pendingReason = ""
	e.restoring = true
	e.mu.Unlock()

	err := e.store.RestoreState(&state)

	e.mu.Lock()
	e.restoring = false
	e.mu.Unlock()

	return err
}

// cursorFor resolves the undo position for a schedule. When the persisted
// cursor belongs to another schedule (the editor switched documents), the
// position resets to the end of that schedule's log. Returns 0 at the start
// of the log.
func (e *Engine) cursorFor(scheduleID int64) (int64, error) {
	snapshotID, cursorScheduleID, err := e.repo.Cursor()
	if err != nil {
		return 0, err
	}

	if cursorScheduleID != nil && *cursorScheduleID == scheduleID {
		if snapshotID == nil {
			return 0, nil
		}
		return *snapshotID, nil
	}

	latest, err := e.repo.List(scheduleID, 1)
	if err != nil {
		return 0, err
	}
	if len(latest) == 0 {
		return 0, nil
	}
	return latest[0].ID, nil
}

// baselineFor returns the last recorded state for a schedule, recovering it
// from the cursor snapshot after a restart. A schedule with no history gets
// its current state as the silent baseline.
func (e *Engine) baselineFor(scheduleID int64) (baseline, error) {
	e.mu.Lock()
	base, ok := e.baselines[scheduleID]
	e.mu.Unlock()
	if ok {
		return base, nil
	}

	cursor, err := e.cursorFor(scheduleID)
	if err != nil {
		return baseline{}, err
	}
	if cursor != 0 {
		snapshot, err := e.repo.Get(cursor)
		if err != nil {
			return baseline{}, err
		}
		if snapshot != nil {
			base, err := baselineOf(snapshot.Next)
			if err != nil {
				return baseline{}, err
			}
			e.mu.Lock()
			e.baselines[scheduleID] = base
			e.mu.Unlock()
			return base, nil
		}
	}

	state, err := e.store.CaptureState(scheduleID)
	if err != nil || state == nil {
		return baseline{}, err
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return baseline{}, err
	}
	key, err := state.Fingerprint()
	if err != nil {
		return baseline{}, err
	}

	base = baseline{raw: string(raw), key: key}
	e.mu.Lock()
	e.baselines[scheduleID] = base
	e.mu.Unlock()
	return base, nil
}
