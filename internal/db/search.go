package db

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"tasktree/internal/models"
)

// SortField selects the ordering of search results.
type SortField string

const (
	SortRelevance SortField = "relevance"
	SortCreated   SortField = "created"
	SortDue       SortField = "due"
	SortPriority  SortField = "priority"
	SortTitle     SortField = "title"
	SortUpdated   SortField = "updated"
)

// TaskSearch is a compound task filter. All predicates are AND-combined;
// the text query alone matches title OR description. Tag names use AND
// semantics: a result must carry every named tag, and an unknown name
// yields no matches rather than an error.
type TaskSearch struct {
	Query            string
	Status           *models.Status
	Priority         *models.Priority
	ListID           *int64
	TagNames         []string
	DueAfter         *time.Time // inclusive
	DueBefore        *time.Time // inclusive
	IncludeCompleted bool
	IncludeCancelled bool
	Limit            int
	SortBy           SortField
	SortDesc         bool
}

// DefaultTaskSearch returns a filter that matches everything.
func DefaultTaskSearch() TaskSearch {
	return TaskSearch{IncludeCompleted: true, IncludeCancelled: true}
}

// ListSearch is the compound list filter.
type ListSearch struct {
	Query         string
	TagNames      []string
	CreatedAfter  *time.Time // inclusive
	CreatedBefore *time.Time // inclusive
	Limit         int
	SortBy        SortField
	SortDesc      bool
}

// resolveTagIDs maps tag names to ids. ok is false when any name is
// unknown, in which case the whole filter matches nothing.
func (db *DB) resolveTagIDs(names []string) (ids []int64, ok bool, err error) {
	for _, name := range names {
		tag, err := db.GetTagByName(name)
		if err != nil {
			return nil, false, err
		}
		if tag == nil {
			return nil, false, nil
		}
		ids = append(ids, tag.ID)
	}
	return ids, true, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// orderClause maps a sort field onto a SQL ORDER BY. Relevance, absent a
// scoring model, falls back to most-recent-first.
func orderClause(field SortField, desc bool, prefix string) string {
	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	switch field {
	case SortCreated:
		return prefix + "created_at" + dir
	case SortDue:
		return prefix + "due_date" + dir
	case SortPriority:
		return prefix + "priority" + dir
	case SortTitle:
		return "LOWER(" + prefix + "title)" + dir
	case SortUpdated:
		return prefix + "updated_at" + dir
	}
	return prefix + "updated_at DESC"
}

// SearchTasks runs a compound filtered search over non-deleted tasks.
func (db *DB) SearchTasks(s TaskSearch) ([]models.Task, error) {
	query := `
		SELECT t.id, t.list_id, t.title, t.description, t.status, t.priority,
		       t.due_date, t.estimated_hours, t.created_at, t.updated_at
		FROM tasks t
		WHERE t.deleted_at IS NULL
	`
	var args []any

	if q := strings.TrimSpace(s.Query); q != "" {
		query += " AND (LOWER(t.title) LIKE LOWER(?) OR LOWER(t.description) LIKE LOWER(?))"
		pattern := "%" + q + "%"
		args = append(args, pattern, pattern)
	}
	if s.Status != nil {
		query += " AND t.status = ?"
		args = append(args, string(*s.Status))
	} else {
		if !s.IncludeCompleted {
			query += " AND t.status != ?"
			args = append(args, string(models.StatusCompleted))
		}
		if !s.IncludeCancelled {
			query += " AND t.status != ?"
			args = append(args, string(models.StatusCancelled))
		}
	}
	if s.Priority != nil {
		query += " AND t.priority = ?"
		args = append(args, int(*s.Priority))
	}
	if s.ListID != nil {
		query += " AND t.list_id = ?"
		args = append(args, *s.ListID)
	}
	if s.DueAfter != nil {
		query += " AND t.due_date >= ?"
		args = append(args, *s.DueAfter)
	}
	if s.DueBefore != nil {
		query += " AND t.due_date <= ?"
		args = append(args, *s.DueBefore)
	}
	if len(s.TagNames) > 0 {
		tagIDs, ok, err := db.resolveTagIDs(s.TagNames)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		query += ` AND t.id IN (
			SELECT task_id FROM task_tags WHERE tag_id IN (` + placeholders(len(tagIDs)) + `)
			GROUP BY task_id HAVING COUNT(DISTINCT tag_id) = ?
		)`
		for _, id := range tagIDs {
			args = append(args, id)
		}
		args = append(args, len(tagIDs))
	}

	limit := s.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	query += " ORDER BY " + orderClause(s.SortBy, s.SortDesc, "t.") + ", t.id LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, storef("search tasks: %v", err)
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
		return nil, storef("search tasks: %v", err)
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

// SearchLists runs the compound filter over non-deleted lists. Results
// carry precomputed path and depth.
func (db *DB) SearchLists(s ListSearch) ([]models.List, error) {
	query := `
		SELECT l.id FROM lists l WHERE l.deleted_at IS NULL
	`
	var args []any

	if q := strings.TrimSpace(s.Query); q != "" {
		query += " AND (LOWER(l.name) LIKE LOWER(?) OR LOWER(l.description) LIKE LOWER(?))"
		pattern := "%" + q + "%"
		args = append(args, pattern, pattern)
	}
	if s.CreatedAfter != nil {
		query += " AND l.created_at >= ?"
		args = append(args, *s.CreatedAfter)
	}
	if s.CreatedBefore != nil {
		query += " AND l.created_at <= ?"
		args = append(args, *s.CreatedBefore)
	}
	if len(s.TagNames) > 0 {
		tagIDs, ok, err := db.resolveTagIDs(s.TagNames)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		query += ` AND l.id IN (
			SELECT list_id FROM list_tags WHERE tag_id IN (` + placeholders(len(tagIDs)) + `)
			GROUP BY list_id HAVING COUNT(DISTINCT tag_id) = ?
		)`
		for _, id := range tagIDs {
			args = append(args, id)
		}
		args = append(args, len(tagIDs))
	}

	limit := s.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	order := orderClause(s.SortBy, s.SortDesc, "l.")
	order = strings.Replace(order, "l.title", "l.name", 1)
	query += " ORDER BY " + order + ", l.id LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, storef("search lists: %v", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, storef("scan list id: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, storef("search lists: %v", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, nil
	}

	all, err := db.GetAllLists()
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.List, len(all))
	for _, l := range all {
		byID[l.ID] = l
	}
	lists := make([]models.List, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			lists = append(lists, l)
		}
	}
	return lists, nil
}

// GetSearchSuggestions returns up to max distinct task titles and tag
// names matching the partial query, prefix matches first. The input must
// be at least two characters.
func (db *DB) GetSearchSuggestions(partial string, max int) ([]string, error) {
	partial = strings.TrimSpace(partial)
	if len(partial) < 2 {
		return nil, validationf("suggestion query must be at least 2 characters")
	}
	if max <= 0 {
		max = 10
	}
	pattern := "%" + partial + "%"

	rows, err := db.Query(`
		SELECT title FROM tasks WHERE deleted_at IS NULL AND LOWER(title) LIKE LOWER(?)
		UNION
		SELECT name FROM tags WHERE LOWER(name) LIKE LOWER(?)
	`, pattern, pattern)
	if err != nil {
		return nil, storef("search suggestions: %v", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, storef("scan suggestion: %v", err)
		}
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storef("search suggestions: %v", err)
	}

	lower := strings.ToLower(partial)
	sort.Slice(out, func(i, j int) bool {
		pi := strings.HasPrefix(strings.ToLower(out[i]), lower)
		pj := strings.HasPrefix(strings.ToLower(out[j]), lower)
		if pi != pj {
			return pi
		}
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

// GetTaskCountByStatus counts non-deleted tasks per status, optionally
// narrowed to one list. Statuses with no tasks are present with a zero
// count.
func (db *DB) GetTaskCountByStatus(listID *int64) (map[models.Status]int, error) {
	query := "SELECT status, COUNT(*) FROM tasks WHERE deleted_at IS NULL"
	var args []any
	if listID != nil {
		query += " AND list_id = ?"
		args = append(args, *listID)
	}
	query += " GROUP BY status"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, storef("count tasks by status: %v", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int, len(models.Statuses))
	for _, st := range models.Statuses {
		counts[st] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, storef("scan status count: %v", err)
		}
		counts[models.Status(status)] = n
	}
	return counts, rows.Err()
}

// TagUsage pairs a tag with how many live tasks and lists carry it.
type TagUsage struct {
	Tag   models.Tag
	Count int
}

// GetMostUsedTags returns the tags with the most live associations,
// most-used first.
func (db *DB) GetMostUsedTags(max int) ([]TagUsage, error) {
	if max <= 0 {
		max = 10
	}
	rows, err := db.Query(`
		SELECT g.id, g.name, g.color, g.parent_id, g.created_at,
		       (SELECT COUNT(*) FROM task_tags tt
		        JOIN tasks t ON t.id = tt.task_id
		        WHERE tt.tag_id = g.id AND t.deleted_at IS NULL)
		     + (SELECT COUNT(*) FROM list_tags lt
		        JOIN lists l ON l.id = lt.list_id
		        WHERE lt.tag_id = g.id AND l.deleted_at IS NULL) AS uses
		FROM tags g
		ORDER BY uses DESC, g.name
		LIMIT ?
	`, max)
	if err != nil {
		return nil, storef("most used tags: %v", err)
	}
	defer rows.Close()

	var out []TagUsage
	for rows.Next() {
		var u TagUsage
		var parent sql.NullInt64
		if err := rows.Scan(&u.Tag.ID, &u.Tag.Name, &u.Tag.Color, &parent, &u.Tag.CreatedAt, &u.Count); err != nil {
			return nil, storef("scan tag usage: %v", err)
		}
		if parent.Valid {
			u.Tag.ParentID = &parent.Int64
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
