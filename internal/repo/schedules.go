package repo

import (
	"context"
	"database/sql"

	"planline/internal/domain"
)

const scheduleCols = `id,created_at,start_date,end_date,hours_per_day,include_weekends,project_deadline,has_cycle,total_tasks,total_hours,critical_path_tasks,critical_path_hours,risks_count,dangling_json`

func scanSchedule(row rowScanner) (domain.Schedule, error) {
	var s domain.Schedule
	var deadline, dangling sql.NullString
	err := row.Scan(&s.ID, &s.CreatedAt, &s.StartDate, &s.EndDate, &s.HoursPerDay, &s.IncludeWeekends,
		&deadline, &s.HasCycle, &s.TotalTasks, &s.TotalHours, &s.CriticalPathTasks, &s.CriticalPathHours,
		&s.RisksCount, &dangling)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if deadline.Valid {
		s.ProjectDeadline = &deadline.String
	}
	if dangling.Valid {
		s.DanglingJSON = &dangling.String
	}
	return s, nil
}

// InsertSchedule stores the header row and one row per task in the
// caller's transaction.
func (r Repo) InsertSchedule(ctx context.Context, tx *sql.Tx, s domain.Schedule, tasks []domain.ScheduleTask) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO schedules(`+scheduleCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.CreatedAt, s.StartDate, s.EndDate, s.HoursPerDay, s.IncludeWeekends, ptrArg(s.ProjectDeadline),
		s.HasCycle, s.TotalTasks, s.TotalHours, s.CriticalPathTasks, s.CriticalPathHours, s.RisksCount,
		ptrArg(s.DanglingJSON)); err != nil {
		return err
	}
	for _, t := range tasks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO schedule_tasks(schedule_id,position,item_type,item_id,title,assignee,estimate_hours,estimate_source,due_date,duration_days,scheduled_start,scheduled_end,earliest_start,earliest_finish,latest_start,latest_finish,float_days,is_critical_path,has_risk,risk_reason,days_late,deps_json) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			t.ScheduleID, t.Position, t.ItemType, t.ItemID, t.Title, ptrArg(t.Assignee), floatArg(t.EstimateHours),
			nullable(t.EstimateSource), ptrArg(t.DueDate), t.DurationDays, t.ScheduledStart, t.ScheduledEnd,
			t.EarliestStart, t.EarliestFinish, t.LatestStart, t.LatestFinish, intArg(t.FloatDays),
			t.IsCriticalPath, t.HasRisk, ptrArg(t.RiskReason), t.DaysLate, ptrArg(t.DepsJSON)); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) GetSchedule(ctx context.Context, id string) (domain.Schedule, []domain.ScheduleTask, error) {
	s, err := scanSchedule(r.DB.QueryRowContext(ctx, `SELECT `+scheduleCols+` FROM schedules WHERE id=?`, id))
	if err != nil {
		return s, nil, err
	}
	tasks, err := r.listScheduleTasks(ctx, id)
	return s, tasks, err
}

func (r Repo) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+scheduleCols+` FROM schedules ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestSchedule returns the most recently created schedule header.
func (r Repo) LatestSchedule(ctx context.Context) (domain.Schedule, error) {
	return scanSchedule(r.DB.QueryRowContext(ctx, `SELECT `+scheduleCols+` FROM schedules ORDER BY created_at DESC, id DESC LIMIT 1`))
}

func (r Repo) listScheduleTasks(ctx context.Context, scheduleID string) ([]domain.ScheduleTask, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT schedule_id,position,item_type,item_id,title,assignee,estimate_hours,estimate_source,due_date,duration_days,scheduled_start,scheduled_end,earliest_start,earliest_finish,latest_start,latest_finish,float_days,is_critical_path,has_risk,risk_reason,days_late,deps_json FROM schedule_tasks WHERE schedule_id=? ORDER BY position`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ScheduleTask
	for rows.Next() {
		var t domain.ScheduleTask
		var assignee, source, due, reason, deps sql.NullString
		var estimate sql.NullFloat64
		var floatDays sql.NullInt64
		if err := rows.Scan(&t.ScheduleID, &t.Position, &t.ItemType, &t.ItemID, &t.Title, &assignee, &estimate,
			&source, &due, &t.DurationDays, &t.ScheduledStart, &t.ScheduledEnd, &t.EarliestStart, &t.EarliestFinish,
			&t.LatestStart, &t.LatestFinish, &floatDays, &t.IsCriticalPath, &t.HasRisk, &reason, &t.DaysLate, &deps); err != nil {
			return nil, err
		}
		if assignee.Valid {
			t.Assignee = &assignee.String
		}
		if estimate.Valid {
			t.EstimateHours = &estimate.Float64
		}
		if source.Valid {
			t.EstimateSource = source.String
		}
		if due.Valid {
			t.DueDate = &due.String
		}
		if floatDays.Valid {
			v := int(floatDays.Int64)
			t.FloatDays = &v
		}
		if reason.Valid {
			t.RiskReason = &reason.String
		}
		if deps.Valid {
			t.DepsJSON = &deps.String
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
