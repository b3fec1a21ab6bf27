package db

import (
	"database/sql"
	"strings"
	"time"

	"tasktree/internal/models"
)

// TaskCreate carries the fields for a new task. ListID may be nil for an
// unassigned task.
type TaskCreate struct {
	Title          string
	Description    string
	ListID         *int64
	DueDate        *time.Time
	Priority       models.Priority
	EstimatedHours *float64
}

// TaskUpdate carries a partial task update. Nil fields are preserved.
// Clear flags null out optional fields and win over their counterparts.
type TaskUpdate struct {
	Title          *string
	Description    *string
	Status         *models.Status
	Priority       *models.Priority
	DueDate        *time.Time
	ClearDueDate   bool
	EstimatedHours *float64
	ClearEstimate  bool
}

// CreateTask creates a new task.
func (db *DB) CreateTask(tc TaskCreate) (*models.Task, error) {
	title := strings.TrimSpace(tc.Title)
	if title == "" {
		return nil, validationf("task title is required")
	}
	if !tc.Priority.Valid() {
		return nil, validationf("unknown priority %d", int(tc.Priority))
	}
	if tc.EstimatedHours != nil && *tc.EstimatedHours < 0 {
		return nil, validationf("estimated hours must not be negative")
	}
	if tc.ListID != nil {
		if _, err := db.GetList(*tc.ListID); err != nil {
			return nil, err
		}
	}

	result, err := db.Exec(`
		INSERT INTO tasks (list_id, title, description, status, priority, due_date, estimated_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tc.ListID, title, tc.Description, string(models.StatusPending), int(tc.Priority), tc.DueDate, tc.EstimatedHours)
	if err != nil {
		return nil, storef("insert task: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, storef("task insert id: %v", err)
	}
	return db.GetTask(id)
}

// GetTask retrieves a non-deleted task by ID with its tags.
func (db *DB) GetTask(id int64) (*models.Task, error) {
	row := db.QueryRow(`
		SELECT id, list_id, title, description, status, priority, due_date,
		       estimated_hours, created_at, updated_at
		FROM tasks WHERE id = ? AND deleted_at IS NULL
	`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, notFoundf("task %d", id)
	}
	if err != nil {
		return nil, storef("get task %d: %v", id, err)
	}

	tags, err := db.GetTaskTags(id)
	if err != nil {
		return nil, err
	}
	t.Tags = tags
	return t, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var listID sql.NullInt64
	var status string
	var priority int
	var due sql.NullTime
	var est sql.NullFloat64
	err := row.Scan(&t.ID, &listID, &t.Title, &t.Description, &status, &priority,
		&due, &est, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if listID.Valid {
		t.ListID = &listID.Int64
	}
	t.Status = models.Status(status)
	t.Priority = models.Priority(priority)
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if est.Valid {
		e := est.Float64
		t.EstimatedHours = &e
	}
	return t, nil
}

// UpdateTask applies a partial update. Status transitions are not
// constrained; any status may follow any other. The modification
// timestamp always advances.
func (db *DB) UpdateTask(id int64, upd TaskUpdate) (*models.Task, error) {
	cur, err := db.GetTask(id)
	if err != nil {
		return nil, err
	}

	title := cur.Title
	if upd.Title != nil {
		title = strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, validationf("task title is required")
		}
	}
	description := cur.Description
	if upd.Description != nil {
		description = *upd.Description
	}
	status := cur.Status
	if upd.Status != nil {
		if _, err := models.ParseStatus(string(*upd.Status)); err != nil {
			return nil, validationf("%v", err)
		}
		status = *upd.Status
	}
	priority := cur.Priority
	if upd.Priority != nil {
		if !upd.Priority.Valid() {
			return nil, validationf("unknown priority %d", int(*upd.Priority))
		}
		priority = *upd.Priority
	}
	due := cur.DueDate
	switch {
	case upd.ClearDueDate:
		due = nil
	case upd.DueDate != nil:
		due = upd.DueDate
	}
	est := cur.EstimatedHours
	switch {
	case upd.ClearEstimate:
		est = nil
	case upd.EstimatedHours != nil:
		if *upd.EstimatedHours < 0 {
			return nil, validationf("estimated hours must not be negative")
		}
		est = upd.EstimatedHours
	}

	_, err = db.Exec(`
		UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?,
		       due_date = ?, estimated_hours = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, title, description, string(status), int(priority), due, est, id)
	if err != nil {
		return nil, storef("update task %d: %v", id, err)
	}
	return db.GetTask(id)
}

// DeleteTask soft-deletes a task. False if not found or already deleted.
func (db *DB) DeleteTask(id int64) (bool, error) {
	result, err := db.Exec(`
		UPDATE tasks SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL
	`, id)
	if err != nil {
		return false, storef("delete task %d: %v", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storef("delete task %d: %v", id, err)
	}
	return n > 0, nil
}

// ListTasks returns non-deleted tasks ordered by id ascending, optionally
// narrowed to a list and a status, paginated. A zero limit applies the
// default window.
func (db *DB) ListTasks(listID *int64, status *models.Status, limit, offset int) ([]models.Task, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, list_id, title, description, status, priority, due_date,
		       estimated_hours, created_at, updated_at
		FROM tasks WHERE deleted_at IS NULL
	`
	var args []any
	if listID != nil {
		query += " AND list_id = ?"
		args = append(args, *listID)
	}
	if status != nil {
		query += " AND status = ?"
		args = append(args, string(*status))
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, storef("list tasks: %v", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, storef("scan task: %v", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storef("list tasks: %v", err)
	}

	for i := range tasks {
		tags, err := db.GetTaskTags(tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Tags = tags
	}
	return tasks, nil
}
