package db

import (
	"database/sql"
	"strings"

	"tasktree/internal/models"
)

// CreateTemplateFromList snapshots every non-deleted task currently in
// the list, in creation order, into a new template. The snapshot is a
// disconnected copy; later changes to the source list do not touch it.
func (db *DB) CreateTemplateFromList(listID int64, name, description, category string) (*models.Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("template name is required")
	}
	if _, err := db.GetList(listID); err != nil {
		return nil, err
	}

	tasks, err := db.ListTasks(&listID, nil, maxSnapshotTasks, 0)
	if err != nil {
		return nil, err
	}

	var templateID int64
	err = db.withTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO templates (name, description, category) VALUES (?, ?, ?)
		`, name, description, category)
		if err != nil {
			return storef("insert template: %v", err)
		}
		templateID, err = result.LastInsertId()
		if err != nil {
			return storef("template insert id: %v", err)
		}
		for i, t := range tasks {
			_, err := tx.Exec(`
				INSERT INTO template_tasks (template_id, position, title, description, estimated_hours, priority)
				VALUES (?, ?, ?, ?, ?, ?)
			`, templateID, i, t.Title, t.Description, t.EstimatedHours, int(t.Priority))
			if err != nil {
				return storef("insert template task %d: %v", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db.GetTemplate(templateID)
}

// Snapshot ceiling, far above any realistic list size.
const maxSnapshotTasks = 10000

// GetTemplate retrieves a non-deleted template with its task snapshots.
func (db *DB) GetTemplate(id int64) (*models.Template, error) {
	tpl := &models.Template{}
	err := db.QueryRow(`
		SELECT id, name, description, category, version, created_at
		FROM templates WHERE id = ? AND deleted_at IS NULL
	`, id).Scan(&tpl.ID, &tpl.Name, &tpl.Description, &tpl.Category, &tpl.Version, &tpl.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, notFoundf("template %d", id)
	}
	if err != nil {
		return nil, storef("get template %d: %v", id, err)
	}

	rows, err := db.Query(`
		SELECT position, title, description, estimated_hours, priority
		FROM template_tasks WHERE template_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, storef("template %d tasks: %v", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var tt models.TemplateTask
		var est sql.NullFloat64
		var priority int
		if err := rows.Scan(&tt.Position, &tt.Title, &tt.Description, &est, &priority); err != nil {
			return nil, storef("scan template task: %v", err)
		}
		if est.Valid {
			e := est.Float64
			tt.EstimatedHours = &e
		}
		tt.Priority = models.Priority(priority)
		tpl.Tasks = append(tpl.Tasks, tt)
	}
	if err := rows.Err(); err != nil {
		return nil, storef("template %d tasks: %v", id, err)
	}
	return tpl, nil
}

// ListTemplates returns all non-deleted templates ordered by name,
// without their task snapshots.
func (db *DB) ListTemplates() ([]models.Template, error) {
	rows, err := db.Query(`
		SELECT id, name, description, category, version, created_at
		FROM templates WHERE deleted_at IS NULL ORDER BY name
	`)
	if err != nil {
		return nil, storef("list templates: %v", err)
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		var tpl models.Template
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Description, &tpl.Category, &tpl.Version, &tpl.CreatedAt); err != nil {
			return nil, storef("scan template: %v", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// ApplyTemplate creates a new list and materializes one task per
// snapshot, in order, assigned to it. List and tasks commit together.
func (db *DB) ApplyTemplate(templateID int64, newListName, description string, parentListID *int64) (*models.List, error) {
	tpl, err := db.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}
	newListName = strings.TrimSpace(newListName)
	if newListName == "" {
		return nil, validationf("list name is required")
	}
	if len(newListName) > maxListNameLen {
		return nil, validationf("list name exceeds %d characters", maxListNameLen)
	}
	if parentListID != nil {
		if _, _, err := db.listAncestry(*parentListID); err != nil {
			return nil, err
		}
	}

	var listID int64
	err = db.withTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO lists (name, description, parent_id) VALUES (?, ?, ?)
		`, newListName, description, parentListID)
		if err != nil {
			return storef("insert list: %v", err)
		}
		listID, err = result.LastInsertId()
		if err != nil {
			return storef("list insert id: %v", err)
		}
		for _, tt := range tpl.Tasks {
			_, err := tx.Exec(`
				INSERT INTO tasks (list_id, title, description, status, priority, estimated_hours)
				VALUES (?, ?, ?, ?, ?, ?)
			`, listID, tt.Title, tt.Description, string(models.StatusPending), int(tt.Priority), tt.EstimatedHours)
			if err != nil {
				return storef("materialize task %d: %v", tt.Position, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db.GetList(listID)
}

// DeleteTemplate soft-deletes a template. Lists and tasks previously
// materialized from it are untouched. False if not found.
func (db *DB) DeleteTemplate(id int64) (bool, error) {
	result, err := db.Exec(`
		UPDATE templates SET deleted_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL
	`, id)
	if err != nil {
		return false, storef("delete template %d: %v", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storef("delete template %d: %v", id, err)
	}
	return n > 0, nil
}
