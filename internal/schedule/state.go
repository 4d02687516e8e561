package schedule

import (
	"encoding/json"
	"time"
)

// StateSnapshot is the full undoable projection of one schedule: the schedule
// row, its day plans, every component with props, and the export scale.
// Serialized as-is into the snapshot log.
type StateSnapshot struct {
	Schedule    Schedule                 `json:"schedule"`
	Days        []ScheduleDay            `json:"days"`
	Components  []Component              `json:"components"`
	Props       map[int64]ComponentProps `json:"props"`
	ExportScale int                      `json:"export_scale"`
	HeroImageID *int64                   `json:"hero_image_id"`
}

// Fingerprint serializes the snapshot with row timestamps zeroed. Two states
// that differ only in created_at/updated_at compare as equal, so an edit
// burst that nets out to the starting state is still detected as a no-op
// even when the burst straddles a wall-clock second.
func (s *StateSnapshot) Fingerprint() (string, error) {
	c := *s
	c.Schedule.CreatedAt = time.Time{}
	c.Schedule.UpdatedAt = time.Time{}

	c.Days = make([]ScheduleDay, len(s.Days))
	for i, d := range s.Days {
		d.CreatedAt = time.Time{}
		d.UpdatedAt = time.Time{}
		c.Days[i] = d
	}

	c.Components = make([]Component, len(s.Components))
	for i, cm := range s.Components {
		cm.CreatedAt = time.Time{}
		cm.UpdatedAt = time.Time{}
		c.Components[i] = cm
	}

	c.Props = make(map[int64]ComponentProps, len(s.Props))
	for id, p := range s.Props {
		p.CreatedAt = time.Time{}
		p.UpdatedAt = time.Time{}
		c.Props[id] = p
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// CaptureState reads the complete undoable state of a schedule.
func (s *Service) CaptureState(scheduleID int64) (*StateSnapshot, error) {
	schedule, err := s.repo.GetSchedule(scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, nil
	}

	days, err := s.repo.DaysForSchedule(scheduleID)
	if err != nil {
		return nil, err
	}

	components, err := s.repo.ComponentsForSchedule(scheduleID)
	if err != nil {
		return nil, err
	}

	props, err := s.repo.PropsForSchedule(scheduleID)
	if err != nil {
		return nil, err
	}

	global, err := s.repo.GetGlobal()
	if err != nil {
		return nil, err
	}

	return &StateSnapshot{
		Schedule:    *schedule,
		Days:        days,
		Components:  components,
		Props:       props,
		ExportScale: global.ExportScale,
		HeroImageID: global.HeroImageID,
	}, nil
}

// RestoreState rewrites a schedule to match a captured snapshot in a single
// transaction. Used by undo/redo; never triggers a new capture itself.
func (s *Service) RestoreState(state *StateSnapshot) error {
	tx, err := s.repo.Writer().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.repo.UpdateScheduleRowTx(tx, state.Schedule); err != nil {
		return err
	}
	if err := s.repo.ReplaceDaysTx(tx, state.Schedule.ID, state.Days); err != nil {
		return err
	}
	if err := s.repo.ReplaceComponentsTx(tx, state.Schedule.ID, state.Components, state.Props); err != nil {
		return err
	}
	if err := s.repo.SetExportScaleTx(tx, state.ExportScale); err != nil {
		return err
	}
	if err := s.repo.SetHeroImageTx(tx, state.HeroImageID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.notify("schedules", "schedule_days", "components", "component_props", "global")
	return nil
}

// propsToMap converts a typed default-props struct into the generic bag shape
// stored in component_props.
func propsToMap(props any) map[string]any {
	raw, err := json.Marshal(props)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
