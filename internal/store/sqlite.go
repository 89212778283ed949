package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"visionark/internal/lbs"
	"visionark/internal/model"
	"visionark/internal/task"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	task_id         TEXT PRIMARY KEY,
	task_name       TEXT NOT NULL,
	context         TEXT NOT NULL DEFAULT '',
	base_load_score REAL NOT NULL DEFAULT 1.0,
	active          INTEGER NOT NULL DEFAULT 1,
	rule_type       TEXT NOT NULL,
	due_date        TEXT,
	mon INTEGER NOT NULL DEFAULT 0,
	tue INTEGER NOT NULL DEFAULT 0,
	wed INTEGER NOT NULL DEFAULT 0,
	thu INTEGER NOT NULL DEFAULT 0,
	fri INTEGER NOT NULL DEFAULT 0,
	sat INTEGER NOT NULL DEFAULT 0,
	sun INTEGER NOT NULL DEFAULT 0,
	interval_days INTEGER,
	anchor_date   TEXT,
	month_day     INTEGER,
	nth_in_month  INTEGER,
	weekday_mon1  INTEGER,
	start_date    TEXT,
	end_date      TEXT,
	notes         TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS task_exceptions (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id             TEXT NOT NULL REFERENCES tasks(task_id),
	target_date         TEXT NOT NULL,
	exception_type      TEXT NOT NULL,
	override_load_value REAL,
	notes               TEXT NOT NULL DEFAULT '',
	UNIQUE(task_id, target_date)
);

CREATE TABLE IF NOT EXISTS lbs_daily_cache (
	target_date        TEXT NOT NULL,
	task_id            TEXT NOT NULL,
	calculated_load    REAL NOT NULL,
	rule_type_snapshot TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'planned',
	is_overflow        INTEGER NOT NULL DEFAULT 0,
	UNIQUE(task_id, target_date)
);

CREATE INDEX IF NOT EXISTS idx_cache_date ON lbs_daily_cache(target_date);
CREATE INDEX IF NOT EXISTS idx_exceptions_task_date ON task_exceptions(task_id, target_date);
`

// SQLite is the persistent store. Cascading deletes are explicit SQL
// inside a transaction, never driver-level FK magic, and the range
// rebuild is a single transaction so concurrent readers see either the
// old range or the new one.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

var (
	_ task.Repo = (*SQLite)(nil)
	_ lbs.Store = (*SQLite)(nil)
)

const taskColumns = `task_id, task_name, context, base_load_score, active, rule_type,
	due_date, mon, tue, wed, thu, fri, sat, sun,
	interval_days, anchor_date, month_day, nth_in_month, weekday_mon1,
	start_date, end_date, notes, created_at, updated_at`

func dateArg(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDate(ns sql.NullString) (*model.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := model.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		t                                  model.Task
		due, anchor, start, end            sql.NullString
		intervalDays, monthDay, nth, wkday sql.NullInt64
		createdAt, updatedAt               string
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.Context, &t.BaseLoadScore, &t.Active, &t.RuleType,
		&due, &t.Mon, &t.Tue, &t.Wed, &t.Thu, &t.Fri, &t.Sat, &t.Sun,
		&intervalDays, &anchor, &monthDay, &nth, &wkday,
		&start, &end, &t.Notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Task{}, err
	}

	if t.DueDate, err = scanDate(due); err != nil {
		return model.Task{}, err
	}
	if t.AnchorDate, err = scanDate(anchor); err != nil {
		return model.Task{}, err
	}
	if t.StartDate, err = scanDate(start); err != nil {
		return model.Task{}, err
	}
	if t.EndDate, err = scanDate(end); err != nil {
		return model.Task{}, err
	}

	t.IntervalDays = int(intervalDays.Int64)
	t.MonthDay = int(monthDay.Int64)
	t.NthInMonth = int(nth.Int64)
	t.WeekdayMon1 = int(wkday.Int64)

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return t, nil
}

func (s *SQLite) Create(t model.Task) (model.Task, error) {
	now := time.Now()
	if t.ID == "" {
		t.ID = task.NewTaskID()
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.Exec(
		`INSERT INTO tasks (`+taskColumns+`) VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Context, t.BaseLoadScore, t.Active, string(t.RuleType),
		dateArg(t.DueDate), t.Mon, t.Tue, t.Wed, t.Thu, t.Fri, t.Sat, t.Sun,
		nullableInt(t.IntervalDays), dateArg(t.AnchorDate),
		nullableInt(t.MonthDay), nullableInt(t.NthInMonth), nullableInt(t.WeekdayMon1),
		dateArg(t.StartDate), dateArg(t.EndDate), t.Notes,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func (s *SQLite) Get(id model.TaskID) (model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return model.Task{}, task.ErrNotFound
	}
	if err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (s *SQLite) Update(id model.TaskID, p task.Patch) (model.Task, error) {
	t, err := s.Get(id)
	if err != nil {
		return model.Task{}, err
	}

	task.ApplyPatch(&t, p)
	t.UpdatedAt = time.Now()

	_, err = s.db.Exec(
		`UPDATE tasks SET task_name=?, context=?, base_load_score=?, active=?, rule_type=?,
		due_date=?, mon=?, tue=?, wed=?, thu=?, fri=?, sat=?, sun=?,
		interval_days=?, anchor_date=?, month_day=?, nth_in_month=?, weekday_mon1=?,
		start_date=?, end_date=?, notes=?, updated_at=?
		WHERE task_id=?`,
		t.Name, t.Context, t.BaseLoadScore, t.Active, string(t.RuleType),
		dateArg(t.DueDate), t.Mon, t.Tue, t.Wed, t.Thu, t.Fri, t.Sat, t.Sun,
		nullableInt(t.IntervalDays), dateArg(t.AnchorDate),
		nullableInt(t.MonthDay), nullableInt(t.NthInMonth), nullableInt(t.WeekdayMon1),
		dateArg(t.StartDate), dateArg(t.EndDate), t.Notes,
		t.UpdatedAt.Format(time.RFC3339), t.ID,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// Delete cascades to the task's exceptions and cache rows in one
// transaction.
func (s *SQLite) Delete(id model.TaskID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM tasks WHERE task_id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return task.ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM task_exceptions WHERE task_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM lbs_daily_cache WHERE task_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) List(filter task.ListFilter) ([]model.Task, int, error) {
	where := "1=1"
	args := []any{}

	switch filter.Status {
	case "active":
		where += " AND active = 1"
	case "completed":
		where += " AND active = 0"
	}
	if filter.Context != "" {
		where += " AND context = ?"
		args = append(args, filter.Context)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where +
		` ORDER BY due_date IS NULL, due_date, task_name`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (s *SQLite) CreateException(exc model.TaskException) (model.TaskException, error) {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM task_exceptions WHERE task_id = ? AND target_date = ?`,
		exc.TaskID, exc.TargetDate.String(),
	).Scan(&exists)
	if err != nil {
		return model.TaskException{}, err
	}
	if exists > 0 {
		return model.TaskException{}, task.ErrDuplicateDate
	}

	var override any
	if exc.OverrideLoadValue != nil {
		override = *exc.OverrideLoadValue
	}
	res, err := s.db.Exec(
		`INSERT INTO task_exceptions (task_id, target_date, exception_type, override_load_value, notes)
		VALUES (?, ?, ?, ?, ?)`,
		exc.TaskID, exc.TargetDate.String(), string(exc.Type), override, exc.Notes,
	)
	if err != nil {
		return model.TaskException{}, fmt.Errorf("insert exception: %w", err)
	}
	exc.ID, _ = res.LastInsertId()
	return exc, nil
}

func (s *SQLite) DeleteException(id int64) (model.TaskException, error) {
	exc, err := s.exceptionByID(id)
	if err != nil {
		return model.TaskException{}, err
	}
	if _, err := s.db.Exec(`DELETE FROM task_exceptions WHERE id = ?`, id); err != nil {
		return model.TaskException{}, err
	}
	return exc, nil
}

func (s *SQLite) exceptionByID(id int64) (model.TaskException, error) {
	row := s.db.QueryRow(
		`SELECT id, task_id, target_date, exception_type, override_load_value, notes
		FROM task_exceptions WHERE id = ?`, id)
	exc, err := scanException(row)
	if err == sql.ErrNoRows {
		return model.TaskException{}, task.ErrExceptionNotFound
	}
	return exc, err
}

func scanException(row rowScanner) (model.TaskException, error) {
	var (
		exc      model.TaskException
		rawDate  string
		override sql.NullFloat64
	)
	if err := row.Scan(&exc.ID, &exc.TaskID, &rawDate, &exc.Type, &override, &exc.Notes); err != nil {
		return model.TaskException{}, err
	}
	d, err := model.ParseDate(rawDate)
	if err != nil {
		return model.TaskException{}, err
	}
	exc.TargetDate = d
	if override.Valid {
		v := override.Float64
		exc.OverrideLoadValue = &v
	}
	return exc, nil
}

func (s *SQLite) ListExceptions(taskID model.TaskID) ([]model.TaskException, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, target_date, exception_type, override_load_value, notes
		FROM task_exceptions WHERE task_id = ? ORDER BY target_date`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.TaskException{}
	for rows.Next() {
		exc, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exc)
	}
	return out, rows.Err()
}

// lbs.Store side.

func (s *SQLite) ActiveTasks() ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT ` + taskColumns + ` FROM tasks WHERE active = 1 ORDER BY task_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) TaskByID(id model.TaskID) (model.Task, error) {
	t, err := s.Get(id)
	if err == task.ErrNotFound {
		return model.Task{}, lbs.ErrNotFound
	}
	return t, err
}

func (s *SQLite) ExceptionFor(id model.TaskID, day model.Date) (*model.TaskException, error) {
	row := s.db.QueryRow(
		`SELECT id, task_id, target_date, exception_type, override_load_value, notes
		FROM task_exceptions WHERE task_id = ? AND target_date = ?`,
		id, day.String())
	exc, err := scanException(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exc, nil
}

func (s *SQLite) ReplaceOccurrences(start, end model.Date, occRows []model.Occurrence) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`DELETE FROM lbs_daily_cache WHERE target_date >= ? AND target_date <= ?`,
		start.String(), end.String())
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO lbs_daily_cache (target_date, task_id, calculated_load, rule_type_snapshot, status, is_overflow)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range occRows {
		_, err := stmt.Exec(
			row.TargetDate.String(), row.TaskID, row.CalculatedLoad,
			string(row.RuleTypeSnapshot), string(row.Status), row.IsOverflow)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) OccurrencesOn(day model.Date) ([]model.Occurrence, error) {
	rows, err := s.db.Query(
		`SELECT target_date, task_id, calculated_load, rule_type_snapshot, status, is_overflow
		FROM lbs_daily_cache WHERE target_date = ? ORDER BY task_id`, day.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Occurrence{}
	for rows.Next() {
		var (
			occ     model.Occurrence
			rawDate string
		)
		if err := rows.Scan(&rawDate, &occ.TaskID, &occ.CalculatedLoad, &occ.RuleTypeSnapshot, &occ.Status, &occ.IsOverflow); err != nil {
			return nil, err
		}
		d, err := model.ParseDate(rawDate)
		if err != nil {
			return nil, err
		}
		occ.TargetDate = d
		out = append(out, occ)
	}
	return out, rows.Err()
}

func (s *SQLite) StampOverflow(day model.Date, overflow bool) error {
	_, err := s.db.Exec(
		`UPDATE lbs_daily_cache SET is_overflow = ? WHERE target_date = ?`,
		overflow, day.String())
	return err
}
