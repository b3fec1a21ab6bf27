package db

import (
	"database/sql"
	"errors"
	"sort"
	"strings"

	"tasktree/internal/models"
)

// ListUpdate carries a partial list update. Nil fields are preserved.
// ClearParent detaches the list from its parent and wins over ParentID.
type ListUpdate struct {
	Name        *string
	Description *string
	ParentID    *int64
	ClearParent bool
}

const maxListNameLen = 200

// CreateList creates a new list, optionally under a parent.
func (db *DB) CreateList(name, description string, parentID *int64) (*models.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("list name is required")
	}
	if len(name) > maxListNameLen {
		return nil, validationf("list name exceeds %d characters", maxListNameLen)
	}
	if parentID != nil {
		// Walking the chain also proves every ancestor is live.
		if _, _, err := db.listAncestry(*parentID); err != nil {
			return nil, err
		}
	}

	result, err := db.Exec(`
		INSERT INTO lists (name, description, parent_id) VALUES (?, ?, ?)
	`, name, description, parentID)
	if err != nil {
		return nil, storef("insert list: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, storef("list insert id: %v", err)
	}

	return db.GetList(id)
}

// GetList retrieves a non-deleted list by ID.
func (db *DB) GetList(id int64) (*models.List, error) {
	l := &models.List{}
	var parent sql.NullInt64
	var deleted sql.NullTime
	err := db.QueryRow(`
		SELECT id, name, description, parent_id, created_at, updated_at, deleted_at
		FROM lists WHERE id = ? AND deleted_at IS NULL
	`, id).Scan(&l.ID, &l.Name, &l.Description, &parent, &l.CreatedAt, &l.UpdatedAt, &deleted)
	if err == sql.ErrNoRows {
		return nil, notFoundf("list %d", id)
	}
	if err != nil {
		return nil, storef("get list %d: %v", id, err)
	}
	if parent.Valid {
		l.ParentID = &parent.Int64
	}
	return l, nil
}

// UpdateList applies a partial update. Changing the parent re-validates
// acyclicity by walking the new ancestor chain.
func (db *DB) UpdateList(id int64, upd ListUpdate) (*models.List, error) {
	cur, err := db.GetList(id)
	if err != nil {
		return nil, err
	}

	name := cur.Name
	if upd.Name != nil {
		name = strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, validationf("list name is required")
		}
		if len(name) > maxListNameLen {
			return nil, validationf("list name exceeds %d characters", maxListNameLen)
		}
	}
	description := cur.Description
	if upd.Description != nil {
		description = *upd.Description
	}

	parentID := cur.ParentID
	switch {
	case upd.ClearParent:
		parentID = nil
	case upd.ParentID != nil:
		if err := db.checkListCycle(id, *upd.ParentID); err != nil {
			return nil, err
		}
		parentID = upd.ParentID
	}

	_, err = db.Exec(`
		UPDATE lists SET name = ?, description = ?, parent_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, name, description, parentID, id)
	if err != nil {
		return nil, storef("update list %d: %v", id, err)
	}

	return db.GetList(id)
}

// checkListCycle rejects a parent assignment that would make id its own
// ancestor. Walks from newParent to the root.
func (db *DB) checkListCycle(id, newParent int64) error {
	if id == newParent {
		return cyclef("list %d cannot be its own parent", id)
	}
	cur := newParent
	for depth := 0; ; depth++ {
		if depth > maxHierarchyDepth {
			return structuralf("list parent chain exceeds %d levels", maxHierarchyDepth)
		}
		var parent sql.NullInt64
		err := db.QueryRow(
			"SELECT parent_id FROM lists WHERE id = ? AND deleted_at IS NULL", cur,
		).Scan(&parent)
		if err == sql.ErrNoRows {
			return notFoundf("list %d", cur)
		}
		if err != nil {
			return storef("walk list %d: %v", cur, err)
		}
		if !parent.Valid {
			return nil
		}
		if parent.Int64 == id {
			return cyclef("list %d is an ancestor of list %d", id, newParent)
		}
		cur = parent.Int64
	}
}

// listAncestry returns the names along the parent chain of id, root
// first and including id itself, plus the ancestor count.
func (db *DB) listAncestry(id int64) (path []string, depth int, err error) {
	cur := id
	for steps := 0; ; steps++ {
		if steps > maxHierarchyDepth {
			return nil, 0, structuralf("list parent chain exceeds %d levels", maxHierarchyDepth)
		}
		var name string
		var parent sql.NullInt64
		err := db.QueryRow(
			"SELECT name, parent_id FROM lists WHERE id = ? AND deleted_at IS NULL", cur,
		).Scan(&name, &parent)
		if err == sql.ErrNoRows {
			return nil, 0, notFoundf("list %d", cur)
		}
		if err != nil {
			return nil, 0, storef("walk list %d: %v", cur, err)
		}
		path = append([]string{name}, path...)
		if !parent.Valid {
			return path, len(path) - 1, nil
		}
		cur = parent.Int64
	}
}

// MoveTask reassigns a task's list membership. A nil target unassigns the
// task rather than deleting it. Moving to the current list is a no-op
// that still reports success.
func (db *DB) MoveTask(taskID int64, targetListID *int64) (bool, error) {
	var curList sql.NullInt64
	err := db.QueryRow(
		"SELECT list_id FROM tasks WHERE id = ? AND deleted_at IS NULL", taskID,
	).Scan(&curList)
	if err == sql.ErrNoRows {
		return false, notFoundf("task %d", taskID)
	}
	if err != nil {
		return false, storef("get task %d: %v", taskID, err)
	}

	if targetListID != nil {
		if _, err := db.GetList(*targetListID); err != nil {
			return false, err
		}
		if curList.Valid && curList.Int64 == *targetListID {
			return true, nil
		}
	} else if !curList.Valid {
		return true, nil
	}

	_, err = db.Exec(`
		UPDATE tasks SET list_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, targetListID, taskID)
	if err != nil {
		return false, storef("move task %d: %v", taskID, err)
	}
	return true, nil
}

// DeleteList soft-deletes a list. Without cascade it refuses when child
// lists or live tasks exist. With cascade every descendant list is
// soft-deleted in one transaction and their tasks become unassigned;
// tasks themselves are never deleted by a list delete.
func (db *DB) DeleteList(id int64, cascade bool) (bool, error) {
	if _, err := db.GetList(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if !cascade {
		var children, tasks int
		err := db.QueryRow(
			"SELECT COUNT(*) FROM lists WHERE parent_id = ? AND deleted_at IS NULL", id,
		).Scan(&children)
		if err != nil {
			return false, storef("count children of list %d: %v", id, err)
		}
		err = db.QueryRow(
			"SELECT COUNT(*) FROM tasks WHERE list_id = ? AND deleted_at IS NULL", id,
		).Scan(&tasks)
		if err != nil {
			return false, storef("count tasks of list %d: %v", id, err)
		}
		if children > 0 || tasks > 0 {
			return false, conflictf("list %d has dependents, use cascade", id)
		}
	}

	ids, err := db.descendantLists(id)
	if err != nil {
		return false, err
	}

	err = db.withTx(func(tx *sql.Tx) error {
		for _, lid := range ids {
			if _, err := tx.Exec(`
				UPDATE lists SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
				WHERE id = ? AND deleted_at IS NULL
			`, lid); err != nil {
				return storef("delete list %d: %v", lid, err)
			}
			if _, err := tx.Exec(`
				UPDATE tasks SET list_id = NULL, updated_at = CURRENT_TIMESTAMP
				WHERE list_id = ?
			`, lid); err != nil {
				return storef("unassign tasks of list %d: %v", lid, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// descendantLists returns id plus every non-deleted descendant,
// breadth-first. The guard bounds total depth, not fan-out.
func (db *DB) descendantLists(id int64) ([]int64, error) {
	ids := []int64{id}
	frontier := []int64{id}
	for depth := 0; len(frontier) > 0; depth++ {
		if depth > maxHierarchyDepth {
			return nil, structuralf("list tree exceeds %d levels", maxHierarchyDepth)
		}
		var next []int64
		for _, pid := range frontier {
			rows, err := db.Query(
				"SELECT id FROM lists WHERE parent_id = ? AND deleted_at IS NULL", pid,
			)
			if err != nil {
				return nil, storef("children of list %d: %v", pid, err)
			}
			for rows.Next() {
				var cid int64
				if err := rows.Scan(&cid); err != nil {
					rows.Close()
					return nil, storef("scan list id: %v", err)
				}
				next = append(next, cid)
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return nil, storef("children of list %d: %v", pid, err)
			}
			rows.Close()
		}
		ids = append(ids, next...)
		frontier = next
	}
	return ids, nil
}

// GetAllLists returns every non-deleted list, flat, with path and depth
// precomputed. Ordered by id.
func (db *DB) GetAllLists() ([]models.List, error) {
	lists, err := db.loadLists()
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.List, len(lists))
	for i := range lists {
		byID[lists[i].ID] = &lists[i]
	}

	for i := range lists {
		path, depth, err := resolvePath(byID, lists[i].ID)
		if err != nil {
			return nil, err
		}
		lists[i].Path = path
		lists[i].Depth = depth
	}
	return lists, nil
}

// GetListTree returns the non-deleted lists nested under their parents.
// Roots and siblings are ordered by name.
func (db *DB) GetListTree() ([]*models.ListNode, error) {
	lists, err := db.GetAllLists()
	if err != nil {
		return nil, err
	}

	nodes := make(map[int64]*models.ListNode, len(lists))
	for _, l := range lists {
		nodes[l.ID] = &models.ListNode{List: l}
	}

	var roots []*models.ListNode
	for _, l := range lists {
		node := nodes[l.ID]
		if l.ParentID != nil {
			if parent, ok := nodes[*l.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	byName := func(ns []*models.ListNode) {
		sort.Slice(ns, func(i, j int) bool {
			return strings.ToLower(ns[i].Name) < strings.ToLower(ns[j].Name)
		})
	}
	byName(roots)
	for _, n := range nodes {
		byName(n.Children)
	}
	return roots, nil
}

func (db *DB) loadLists() ([]models.List, error) {
	rows, err := db.Query(`
		SELECT id, name, description, parent_id, created_at, updated_at
		FROM lists WHERE deleted_at IS NULL ORDER BY id
	`)
	if err != nil {
		return nil, storef("load lists: %v", err)
	}
	defer rows.Close()

	var lists []models.List
	for rows.Next() {
		var l models.List
		var parent sql.NullInt64
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &parent, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, storef("scan list: %v", err)
		}
		if parent.Valid {
			l.ParentID = &parent.Int64
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storef("load lists: %v", err)
	}
	return lists, nil
}

// resolvePath walks the in-memory parent chain for one flat read.
func resolvePath(byID map[int64]*models.List, id int64) ([]string, int, error) {
	var path []string
	cur, ok := byID[id]
	if !ok {
		return nil, 0, structuralf("list %d missing from snapshot", id)
	}
	for steps := 0; ; steps++ {
		if steps > maxHierarchyDepth {
			return nil, 0, structuralf("list parent chain exceeds %d levels", maxHierarchyDepth)
		}
		path = append([]string{cur.Name}, path...)
		if cur.ParentID == nil {
			return path, len(path) - 1, nil
		}
		next, ok := byID[*cur.ParentID]
		if !ok {
			return nil, 0, structuralf("list %d references missing parent %d", cur.ID, *cur.ParentID)
		}
		cur = next
	}
}
