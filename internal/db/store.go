// Package db persists project aggregates in SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"traveldesk/internal/models"
)

// ErrProjectNotFound is returned when the requested project does not exist.
var ErrProjectNotFound = errors.New("project not found")

const dateLayout = "2006-01-02"

// DB wraps sql.DB for the project store.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			max_gap_days INTEGER NOT NULL DEFAULT 0,
			weekend_policy TEXT NOT NULL DEFAULT 'work_if_adjacent',
			arrival_buffer_days INTEGER NOT NULL DEFAULT 0,
			departure_buffer_days INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			UNIQUE (project_id, name),
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS shooting_periods (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			location TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS cast_members (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			home_location TEXT NOT NULL,
			include BOOLEAN NOT NULL DEFAULT 1,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			member_name TEXT NOT NULL,
			date TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			required BOOLEAN NOT NULL DEFAULT 1,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_periods_project ON shooting_periods(project_id, start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_members_project ON cast_members(project_id, name)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_project ON assignments(project_id, member_name, date)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// SaveProject upserts the whole aggregate in one transaction: the project row
// is updated in place, child rows are replaced.
func (d *DB) SaveProject(ctx context.Context, p *models.Project) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, max_gap_days, weekend_policy, arrival_buffer_days, departure_buffer_days)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			max_gap_days = excluded.max_gap_days,
			weekend_policy = excluded.weekend_policy,
			arrival_buffer_days = excluded.arrival_buffer_days,
			departure_buffer_days = excluded.departure_buffer_days,
			updated_at = CURRENT_TIMESTAMP`,
		p.ID, p.Name, p.Policy.MaxGapDays, string(p.Policy.WeekendPolicy),
		p.Policy.ArrivalBufferDays, p.Policy.DepartureBufferDays)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}

	for _, table := range []string{"locations", "shooting_periods", "cast_members", "assignments"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE project_id = ?", p.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, loc := range p.Locations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO locations (project_id, name) VALUES (?, ?)", p.ID, loc.Name); err != nil {
			return fmt.Errorf("save location %s: %w", loc.Name, err)
		}
	}
	for _, per := range p.Periods {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO shooting_periods (project_id, name, location, start_date, end_date)
			VALUES (?, ?, ?, ?, ?)`,
			p.ID, per.Name, per.Location,
			per.Start.Format(dateLayout), per.End.Format(dateLayout)); err != nil {
			return fmt.Errorf("save period %s: %w", per.Name, err)
		}
	}
	for _, m := range p.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cast_members (id, project_id, name, home_location, include)
			VALUES (?, ?, ?, ?, ?)`,
			m.ID, p.ID, m.Name, m.HomeLocation, m.Include); err != nil {
			return fmt.Errorf("save member %s: %w", m.Name, err)
		}
	}
	for _, a := range p.Assignments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO assignments (project_id, member_name, date, location, required)
			VALUES (?, ?, ?, ?, ?)`,
			p.ID, a.MemberName, a.Date.Format(dateLayout), a.Location, a.Required); err != nil {
			return fmt.Errorf("save assignment %s/%s: %w", a.MemberName, a.Date.Format(dateLayout), err)
		}
	}

	return tx.Commit()
}

// LoadProject reads the whole aggregate.
func (d *DB) LoadProject(ctx context.Context, id string) (*models.Project, error) {
	p := &models.Project{ID: id}

	var policy string
	err := d.QueryRowContext(ctx, `
		SELECT name, max_gap_days, weekend_policy, arrival_buffer_days, departure_buffer_days
		FROM projects WHERE id = ?`, id).
		Scan(&p.Name, &p.Policy.MaxGapDays, &policy,
			&p.Policy.ArrivalBufferDays, &p.Policy.DepartureBufferDays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	p.Policy.WeekendPolicy = models.WeekendPolicy(policy)

	rows, err := d.QueryContext(ctx,
		"SELECT name FROM locations WHERE project_id = ? ORDER BY name", id)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var loc models.Location
		if err := rows.Scan(&loc.Name); err != nil {
			return nil, err
		}
		loc.ID = loc.Name
		p.Locations = append(p.Locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if p.Periods, err = d.loadPeriods(ctx, id); err != nil {
		return nil, err
	}
	if p.Members, err = d.loadMembers(ctx, id); err != nil {
		return nil, err
	}
	if p.Assignments, err = d.loadAssignments(ctx, id); err != nil {
		return nil, err
	}

	return p, nil
}

func (d *DB) loadPeriods(ctx context.Context, projectID string) ([]models.ShootingPeriod, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT name, location, start_date, end_date
		FROM shooting_periods WHERE project_id = ? ORDER BY start_date`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load periods: %w", err)
	}
	defer rows.Close()

	var periods []models.ShootingPeriod
	for rows.Next() {
		var per models.ShootingPeriod
		var start, end string
		if err := rows.Scan(&per.Name, &per.Location, &start, &end); err != nil {
			return nil, err
		}
		if per.Start, err = parseDate(start); err != nil {
			return nil, err
		}
		if per.End, err = parseDate(end); err != nil {
			return nil, err
		}
		periods = append(periods, per)
	}
	return periods, rows.Err()
}

func (d *DB) loadMembers(ctx context.Context, projectID string) ([]models.CastMember, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT id, name, home_location, include
		FROM cast_members WHERE project_id = ? ORDER BY name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	defer rows.Close()

	var members []models.CastMember
	for rows.Next() {
		var m models.CastMember
		if err := rows.Scan(&m.ID, &m.Name, &m.HomeLocation, &m.Include); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (d *DB) loadAssignments(ctx context.Context, projectID string) ([]models.AssignmentRow, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT member_name, date, location, required
		FROM assignments WHERE project_id = ? ORDER BY member_name, date`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.AssignmentRow
	for rows.Next() {
		var a models.AssignmentRow
		var date string
		if err := rows.Scan(&a.MemberName, &date, &a.Location, &a.Required); err != nil {
			return nil, err
		}
		if a.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ProjectInfo is one row of the project listing.
type ProjectInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListProjects returns id, name and last update of every project.
func (d *DB) ListProjects(ctx context.Context) ([]ProjectInfo, error) {
	rows, err := d.QueryContext(ctx,
		"SELECT id, name, updated_at FROM projects ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var infos []ProjectInfo
	for rows.Next() {
		var info ProjectInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.UpdatedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteProject removes the project and all child rows.
func (d *DB) DeleteProject(ctx context.Context, id string) error {
	res, err := d.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}
