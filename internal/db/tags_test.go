package db

import (
	"errors"
	"strings"
	"testing"
)

func TestAddTagToTaskIdempotent(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	task := mustTask(t, db, "call plumber", &list.ID)
	tag := mustTag(t, db, "home", nil)

	if err := db.AddTagToTask(task.ID, tag.ID); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	// second add succeeds without duplicating the association
	if err := db.AddTagToTask(task.ID, tag.ID); err != nil {
		t.Fatalf("second add failed: %v", err)
	}

	tags, err := db.GetTaskTags(task.ID)
	if err != nil {
		t.Fatalf("GetTaskTags failed: %v", err)
	}
	if len(tags) != 1 {
		t.Errorf("tag set size: got %d, want 1", len(tags))
	}
}

func TestRemoveTagAssociation(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	task := mustTask(t, db, "task", &list.ID)
	tag := mustTag(t, db, "urgent", nil)

	// absent association reports false, not an error
	ok, err := db.RemoveTagFromTask(task.ID, tag.ID)
	if err != nil {
		t.Fatalf("RemoveTagFromTask failed: %v", err)
	}
	if ok {
		t.Error("removing an absent association should report false")
	}

	if err := db.AddTagToTask(task.ID, tag.ID); err != nil {
		t.Fatalf("AddTagToTask failed: %v", err)
	}
	ok, err = db.RemoveTagFromTask(task.ID, tag.ID)
	if err != nil || !ok {
		t.Fatalf("remove existing: got (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = db.RemoveTagFromList(list.ID, tag.ID)
	if err != nil || ok {
		t.Errorf("list association never existed: got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestTagNameConflict(t *testing.T) {
	db := testDB(t)

	mustTag(t, db, "urgent", nil)
	if _, err := db.CreateTag("Urgent", "", nil); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate name (case-insensitive): got %v, want ErrConflict", err)
	}
}

func TestTagCycle(t *testing.T) {
	db := testDB(t)

	a := mustTag(t, db, "area", nil)
	b := mustTag(t, db, "house", &a.ID)
	c := mustTag(t, db, "garage", &b.ID)

	if _, err := db.UpdateTag(a.ID, TagUpdate{ParentID: &c.ID}); !errors.Is(err, ErrCycle) {
		t.Errorf("re-parent under descendant: got %v, want ErrCycle", err)
	}
	if _, err := db.UpdateTag(a.ID, TagUpdate{ParentID: &a.ID}); !errors.Is(err, ErrCycle) {
		t.Errorf("self-parent: got %v, want ErrCycle", err)
	}
}

func TestTagPath(t *testing.T) {
	db := testDB(t)

	a := mustTag(t, db, "area", nil)
	b := mustTag(t, db, "house", &a.ID)
	c := mustTag(t, db, "garage", &b.ID)

	path, depth, err := db.TagPath(c.ID)
	if err != nil {
		t.Fatalf("TagPath failed: %v", err)
	}
	if got := strings.Join(path, "/"); got != "area/house/garage" {
		t.Errorf("path: got %q, want area/house/garage", got)
	}
	if depth != 2 {
		t.Errorf("depth: got %d, want 2", depth)
	}

	path, depth, err = db.TagPath(a.ID)
	if err != nil {
		t.Fatalf("TagPath failed: %v", err)
	}
	if len(path) != 1 || depth != 0 {
		t.Errorf("root tag: got path %v depth %d", path, depth)
	}
}

func TestDeleteTagHard(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	task := mustTask(t, db, "task", &list.ID)
	parent := mustTag(t, db, "context", nil)
	tag := mustTag(t, db, "office", &parent.ID)
	child := mustTag(t, db, "desk", &tag.ID)

	if err := db.AddTagToTask(task.ID, tag.ID); err != nil {
		t.Fatalf("AddTagToTask failed: %v", err)
	}
	if err := db.AddTagToList(list.ID, tag.ID); err != nil {
		t.Fatalf("AddTagToList failed: %v", err)
	}

	if err := db.DeleteTag(tag.ID); err != nil {
		t.Fatalf("DeleteTag failed: %v", err)
	}

	if _, err := db.GetTag(tag.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted tag still resolves: %v", err)
	}
	tags, err := db.GetTaskTags(task.ID)
	if err != nil {
		t.Fatalf("GetTaskTags failed: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("task associations survived hard delete: %v", tags)
	}
	tags, err = db.GetListTags(list.ID)
	if err != nil {
		t.Fatalf("GetListTags failed: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("list associations survived hard delete: %v", tags)
	}

	// orphaned child became a root
	got, err := db.GetTag(child.ID)
	if err != nil {
		t.Fatalf("GetTag failed: %v", err)
	}
	if got.ParentID != nil {
		t.Errorf("child parent after delete: got %v, want nil", got.ParentID)
	}

	if err := db.DeleteTag(tag.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
}
