package db

import (
	"database/sql"
	"strings"

	"tasktree/internal/models"
)

// TagUpdate carries a partial tag update. Nil fields are preserved.
// ClearParent detaches the tag from its parent and wins over ParentID.
type TagUpdate struct {
	Name        *string
	Color       *string
	ParentID    *int64
	ClearParent bool
}

// CreateTag creates a new tag, optionally under a parent. Names are
// unique, case-insensitively.
func (db *DB) CreateTag(name, color string, parentID *int64) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("tag name is required")
	}
	if parentID != nil {
		if _, err := db.GetTag(*parentID); err != nil {
			return nil, err
		}
	}
	if existing, err := db.GetTagByName(name); err == nil && existing != nil {
		return nil, conflictf("tag %q already exists", name)
	}

	result, err := db.Exec(
		"INSERT INTO tags (name, color, parent_id) VALUES (?, ?, ?)", name, color, parentID,
	)
	if err != nil {
		return nil, storef("insert tag: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, storef("tag insert id: %v", err)
	}

	return db.GetTag(id)
}

// GetTag retrieves a tag by ID.
func (db *DB) GetTag(id int64) (*models.Tag, error) {
	t := &models.Tag{}
	var parent sql.NullInt64
	err := db.QueryRow("SELECT id, name, color, parent_id, created_at FROM tags WHERE id = ?", id).
		Scan(&t.ID, &t.Name, &t.Color, &parent, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, notFoundf("tag %d", id)
	}
	if err != nil {
		return nil, storef("get tag %d: %v", id, err)
	}
	if parent.Valid {
		t.ParentID = &parent.Int64
	}
	return t, nil
}

// GetTagByName retrieves a tag by its name (case-insensitive). Returns
// (nil, nil) when no such tag exists; absence is not an error here
// because search resolves unknown names to empty results.
func (db *DB) GetTagByName(name string) (*models.Tag, error) {
	t := &models.Tag{}
	var parent sql.NullInt64
	err := db.QueryRow(
		"SELECT id, name, color, parent_id, created_at FROM tags WHERE LOWER(name) = LOWER(?)", name,
	).Scan(&t.ID, &t.Name, &t.Color, &parent, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storef("get tag %q: %v", name, err)
	}
	if parent.Valid {
		t.ParentID = &parent.Int64
	}
	return t, nil
}

// ListTags returns all tags ordered by name.
func (db *DB) ListTags() ([]models.Tag, error) {
	rows, err := db.Query("SELECT id, name, color, parent_id, created_at FROM tags ORDER BY name")
	if err != nil {
		return nil, storef("list tags: %v", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		var parent sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &parent, &t.CreatedAt); err != nil {
			return nil, storef("scan tag: %v", err)
		}
		if parent.Valid {
			t.ParentID = &parent.Int64
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storef("list tags: %v", err)
	}
	return tags, nil
}

// UpdateTag applies a partial update. Re-parenting runs the same cycle
// check as lists.
func (db *DB) UpdateTag(id int64, upd TagUpdate) (*models.Tag, error) {
	cur, err := db.GetTag(id)
	if err != nil {
		return nil, err
	}

	name := cur.Name
	if upd.Name != nil {
		name = strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, validationf("tag name is required")
		}
		if !strings.EqualFold(name, cur.Name) {
			if existing, err := db.GetTagByName(name); err == nil && existing != nil {
				return nil, conflictf("tag %q already exists", name)
			}
		}
	}
	color := cur.Color
	if upd.Color != nil {
		color = *upd.Color
	}

	parentID := cur.ParentID
	switch {
	case upd.ClearParent:
		parentID = nil
	case upd.ParentID != nil:
		if err := db.checkTagCycle(id, *upd.ParentID); err != nil {
			return nil, err
		}
		parentID = upd.ParentID
	}

	_, err = db.Exec(
		"UPDATE tags SET name = ?, color = ?, parent_id = ? WHERE id = ?", name, color, parentID, id,
	)
	if err != nil {
		return nil, storef("update tag %d: %v", id, err)
	}
	return db.GetTag(id)
}

func (db *DB) checkTagCycle(id, newParent int64) error {
	if id == newParent {
		return cyclef("tag %d cannot be its own parent", id)
	}
	cur := newParent
	for depth := 0; ; depth++ {
		if depth > maxHierarchyDepth {
			return structuralf("tag parent chain exceeds %d levels", maxHierarchyDepth)
		}
		var parent sql.NullInt64
		err := db.QueryRow("SELECT parent_id FROM tags WHERE id = ?", cur).Scan(&parent)
		if err == sql.ErrNoRows {
			return notFoundf("tag %d", cur)
		}
		if err != nil {
			return storef("walk tag %d: %v", cur, err)
		}
		if !parent.Valid {
			return nil
		}
		if parent.Int64 == id {
			return cyclef("tag %d is an ancestor of tag %d", id, newParent)
		}
		cur = parent.Int64
	}
}

// TagPath returns the names along the tag's ancestor chain, root first
// and including the tag itself, plus the ancestor count.
func (db *DB) TagPath(id int64) (path []string, depth int, err error) {
	cur := id
	for steps := 0; ; steps++ {
		if steps > maxHierarchyDepth {
			return nil, 0, structuralf("tag parent chain exceeds %d levels", maxHierarchyDepth)
		}
		var name string
		var parent sql.NullInt64
		err := db.QueryRow("SELECT name, parent_id FROM tags WHERE id = ?", cur).Scan(&name, &parent)
		if err == sql.ErrNoRows {
			return nil, 0, notFoundf("tag %d", cur)
		}
		if err != nil {
			return nil, 0, storef("walk tag %d: %v", cur, err)
		}
		path = append([]string{name}, path...)
		if !parent.Valid {
			return path, len(path) - 1, nil
		}
		cur = parent.Int64
	}
}

// DeleteTag hard-deletes a tag and every association to tasks and lists
// in one transaction.
func (db *DB) DeleteTag(id int64) error {
	if _, err := db.GetTag(id); err != nil {
		return err
	}
	return db.withTx(func(tx *sql.Tx) error {
		// Children of the deleted tag become roots.
		if _, err := tx.Exec("UPDATE tags SET parent_id = NULL WHERE parent_id = ?", id); err != nil {
			return storef("detach children of tag %d: %v", id, err)
		}
		if _, err := tx.Exec("DELETE FROM task_tags WHERE tag_id = ?", id); err != nil {
			return storef("delete task associations of tag %d: %v", id, err)
		}
		if _, err := tx.Exec("DELETE FROM list_tags WHERE tag_id = ?", id); err != nil {
			return storef("delete list associations of tag %d: %v", id, err)
		}
		if _, err := tx.Exec("DELETE FROM tags WHERE id = ?", id); err != nil {
			return storef("delete tag %d: %v", id, err)
		}
		return nil
	})
}

// AddTagToTask attaches a tag to a task. Adding an already-present tag
// succeeds without duplicating the association.
func (db *DB) AddTagToTask(taskID, tagID int64) error {
	if _, err := db.GetTask(taskID); err != nil {
		return err
	}
	if _, err := db.GetTag(tagID); err != nil {
		return err
	}
	_, err := db.Exec("INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)", taskID, tagID)
	if err != nil {
		return storef("tag task %d: %v", taskID, err)
	}
	return nil
}

// RemoveTagFromTask detaches a tag from a task. Reports false, not an
// error, when the association did not exist.
func (db *DB) RemoveTagFromTask(taskID, tagID int64) (bool, error) {
	result, err := db.Exec("DELETE FROM task_tags WHERE task_id = ? AND tag_id = ?", taskID, tagID)
	if err != nil {
		return false, storef("untag task %d: %v", taskID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storef("untag task %d: %v", taskID, err)
	}
	return n > 0, nil
}

// AddTagToList attaches a tag to a list, idempotently.
func (db *DB) AddTagToList(listID, tagID int64) error {
	if _, err := db.GetList(listID); err != nil {
		return err
	}
	if _, err := db.GetTag(tagID); err != nil {
		return err
	}
	_, err := db.Exec("INSERT OR IGNORE INTO list_tags (list_id, tag_id) VALUES (?, ?)", listID, tagID)
	if err != nil {
		return storef("tag list %d: %v", listID, err)
	}
	return nil
}

// RemoveTagFromList detaches a tag from a list. False when the
// association did not exist.
func (db *DB) RemoveTagFromList(listID, tagID int64) (bool, error) {
	result, err := db.Exec("DELETE FROM list_tags WHERE list_id = ? AND tag_id = ?", listID, tagID)
	if err != nil {
		return false, storef("untag list %d: %v", listID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storef("untag list %d: %v", listID, err)
	}
	return n > 0, nil
}

// GetTaskTags returns all tags attached to a task, ordered by name.
func (db *DB) GetTaskTags(taskID int64) ([]models.Tag, error) {
	return db.tagsFor("task_tags", "task_id", taskID)
}

// GetListTags returns all tags attached to a list, ordered by name.
func (db *DB) GetListTags(listID int64) ([]models.Tag, error) {
	return db.tagsFor("list_tags", "list_id", listID)
}

func (db *DB) tagsFor(joinTable, fkCol string, id int64) ([]models.Tag, error) {
	rows, err := db.Query(`
		SELECT t.id, t.name, t.color, t.parent_id, t.created_at
		FROM tags t
		JOIN `+joinTable+` j ON t.id = j.tag_id
		WHERE j.`+fkCol+` = ?
		ORDER BY t.name
	`, id)
	if err != nil {
		return nil, storef("tags of %s %d: %v", fkCol, id, err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		var parent sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &parent, &t.CreatedAt); err != nil {
			return nil, storef("scan tag: %v", err)
		}
		if parent.Valid {
			t.ParentID = &parent.Int64
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
