package db

import (
	"errors"
	"testing"
	"time"

	"tasktree/internal/models"
)

func TestSearchTextExcludesCompleted(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "groceries", nil)
	milk := mustTask(t, db, "Buy milk", &list.ID)
	eggs := mustTask(t, db, "Buy eggs", &list.ID)
	if _, err := db.UpdateTask(eggs.ID, TaskUpdate{Status: ptr(models.StatusCompleted)}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	s := DefaultTaskSearch()
	s.Query = "buy"
	s.IncludeCompleted = false
	tasks, err := db.SearchTasks(s)
	if err != nil {
		t.Fatalf("SearchTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != milk.ID {
		t.Errorf("got %v, want exactly the pending milk task", tasks)
	}

	s.IncludeCompleted = true
	tasks, err = db.SearchTasks(s)
	if err != nil {
		t.Fatalf("SearchTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("with completed: got %d tasks, want 2", len(tasks))
	}
}

func TestSearchTextMatchesDescription(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	task, err := db.CreateTask(TaskCreate{Title: "errand", Description: "buy stamps", ListID: &list.ID})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	s := DefaultTaskSearch()
	s.Query = "BUY"
	tasks, err := db.SearchTasks(s)
	if err != nil {
		t.Fatalf("SearchTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Errorf("description match: got %v", tasks)
	}
}

func TestSearchTagAndSemantics(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	both := mustTask(t, db, "fix the roof", &list.ID)
	one := mustTask(t, db, "file taxes", &list.ID)
	urgent := mustTag(t, db, "urgent", nil)
	home := mustTag(t, db, "home", nil)

	for _, tagID := range []int64{urgent.ID, home.ID} {
		if err := db.AddTagToTask(both.ID, tagID); err != nil {
			t.Fatalf("AddTagToTask failed: %v", err)
		}
	}
	if err := db.AddTagToTask(one.ID, urgent.ID); err != nil {
		t.Fatalf("AddTagToTask failed: %v", err)
	}

	s := DefaultTaskSearch()
	s.TagNames = []string{"urgent", "home"}
	tasks, err := db.SearchTasks(s)
	if err != nil {
		t.Fatalf("SearchTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != both.ID {
		t.Errorf("AND semantics: got %v, want only the doubly-tagged task", tasks)
	}

	// unknown tag names contribute no matches, not an error
	s.TagNames = []string{"urgent", "nosuch"}
	tasks, err = db.SearchTasks(s)
	if err != nil {
		t.Fatalf("SearchTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("unknown tag: got %v, want empty", tasks)
	}
}

func TestSearchFiltersCombine(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	other := mustList(t, db, "other", nil)
	due := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	match, err := db.CreateTask(TaskCreate{Title: "ship it", ListID: &list.ID, Priority: models.PriorityHigh, DueDate: &due})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := db.CreateTask(TaskCreate{Title: "ship it later", ListID: &other.ID, Priority: models.PriorityHigh, DueDate: &due}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := db.CreateTask(TaskCreate{Title: "ship it slowly", ListID: &list.ID, Priority: models.PriorityLow, DueDate: &due}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	s := DefaultTaskSearch()
	s.Query = "ship"
	s.ListID = &list.ID
	s.Priority = ptr(models.PriorityHigh)
	s.DueAfter = ptr(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	s.DueBefore = ptr(time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC))
	tasks, err := db.SearchTasks(s)
	if err != nil {
		t.Fatalf("SearchTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != match.ID {
		t.Errorf("combined filters: got %v, want one match", tasks)
	}

	// inclusive bounds
	s.DueAfter = &due
	s.DueBefore = &due
	tasks, err = db.SearchTasks(s)
	if err != nil {
		t.Fatalf("SearchTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("inclusive bounds: got %d, want 1", len(tasks))
	}
}

func TestSearchSorting(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	low, _ := db.CreateTask(TaskCreate{Title: "b low", ListID: &list.ID, Priority: models.PriorityLow})
	crit, _ := db.CreateTask(TaskCreate{Title: "a critical", ListID: &list.ID, Priority: models.PriorityCritical})

	s := DefaultTaskSearch()
	s.SortBy = SortPriority
	s.SortDesc = true
	tasks, err := db.SearchTasks(s)
	if err != nil {
		t.Fatalf("SearchTasks failed: %v", err)
	}
	if tasks[0].ID != crit.ID || tasks[1].ID != low.ID {
		t.Errorf("priority desc: got %q first", tasks[0].Title)
	}

	s.SortBy = SortTitle
	s.SortDesc = false
	tasks, err = db.SearchTasks(s)
	if err != nil {
		t.Fatalf("SearchTasks failed: %v", err)
	}
	if tasks[0].ID != crit.ID {
		t.Errorf("title asc: got %q first", tasks[0].Title)
	}
}

func TestSearchLists(t *testing.T) {
	db := testDB(t)

	work := mustList(t, db, "Work", nil)
	proj := mustList(t, db, "Projects", &work.ID)
	mustList(t, db, "Home", nil)
	tag := mustTag(t, db, "active", nil)
	if err := db.AddTagToList(proj.ID, tag.ID); err != nil {
		t.Fatalf("AddTagToList failed: %v", err)
	}

	lists, err := db.SearchLists(ListSearch{Query: "proj"})
	if err != nil {
		t.Fatalf("SearchLists failed: %v", err)
	}
	if len(lists) != 1 || lists[0].ID != proj.ID {
		t.Fatalf("query: got %v, want Projects", lists)
	}
	if lists[0].Depth != 1 || len(lists[0].Path) != 2 {
		t.Errorf("path/depth on result: got %v depth %d", lists[0].Path, lists[0].Depth)
	}

	lists, err = db.SearchLists(ListSearch{TagNames: []string{"active"}})
	if err != nil {
		t.Fatalf("SearchLists failed: %v", err)
	}
	if len(lists) != 1 || lists[0].ID != proj.ID {
		t.Errorf("tag filter: got %v", lists)
	}

	lists, err = db.SearchLists(ListSearch{TagNames: []string{"nosuch"}})
	if err != nil {
		t.Fatalf("SearchLists failed: %v", err)
	}
	if len(lists) != 0 {
		t.Errorf("unknown tag: got %v, want empty", lists)
	}
}

func TestSearchSuggestions(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	mustTask(t, db, "Buy milk", &list.ID)
	mustTask(t, db, "buy milk", &list.ID) // distinct rows, one suggestion
	mustTask(t, db, "Rebuy filters", &list.ID)
	mustTag(t, db, "buyer", nil)

	if _, err := db.GetSearchSuggestions("b", 10); !errors.Is(err, ErrValidation) {
		t.Errorf("one-char query: got %v, want ErrValidation", err)
	}

	got, err := db.GetSearchSuggestions("buy", 10)
	if err != nil {
		t.Fatalf("GetSearchSuggestions failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("suggestions: got %v, want 3 distinct entries", got)
	}
	// prefix matches come before substring matches
	if got[len(got)-1] != "Rebuy filters" {
		t.Errorf("substring match should sort last: got %v", got)
	}

	got, err = db.GetSearchSuggestions("buy", 2)
	if err != nil {
		t.Fatalf("GetSearchSuggestions failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("max: got %d, want 2", len(got))
	}
}

func TestTaskCountByStatus(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	other := mustList(t, db, "other", nil)
	mustTask(t, db, "a", &list.ID)
	mustTask(t, db, "b", &list.ID)
	done := mustTask(t, db, "c", &list.ID)
	if _, err := db.UpdateTask(done.ID, TaskUpdate{Status: ptr(models.StatusCompleted)}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	mustTask(t, db, "d", &other.ID)

	counts, err := db.GetTaskCountByStatus(&list.ID)
	if err != nil {
		t.Fatalf("GetTaskCountByStatus failed: %v", err)
	}
	if counts[models.StatusPending] != 2 || counts[models.StatusCompleted] != 1 {
		t.Errorf("counts: got %v", counts)
	}
	if counts[models.StatusBlocked] != 0 {
		t.Errorf("zero statuses must be present: got %v", counts)
	}

	counts, err = db.GetTaskCountByStatus(nil)
	if err != nil {
		t.Fatalf("GetTaskCountByStatus failed: %v", err)
	}
	if counts[models.StatusPending] != 3 {
		t.Errorf("global pending: got %d, want 3", counts[models.StatusPending])
	}
}

func TestMostUsedTags(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	a := mustTask(t, db, "a", &list.ID)
	b := mustTask(t, db, "b", &list.ID)
	popular := mustTag(t, db, "popular", nil)
	rare := mustTag(t, db, "rare", nil)

	for _, taskID := range []int64{a.ID, b.ID} {
		if err := db.AddTagToTask(taskID, popular.ID); err != nil {
			t.Fatalf("AddTagToTask failed: %v", err)
		}
	}
	if err := db.AddTagToList(list.ID, popular.ID); err != nil {
		t.Fatalf("AddTagToList failed: %v", err)
	}
	if err := db.AddTagToTask(a.ID, rare.ID); err != nil {
		t.Fatalf("AddTagToTask failed: %v", err)
	}

	usages, err := db.GetMostUsedTags(5)
	if err != nil {
		t.Fatalf("GetMostUsedTags failed: %v", err)
	}
	if len(usages) != 2 {
		t.Fatalf("usages: got %d, want 2", len(usages))
	}
	if usages[0].Tag.ID != popular.ID || usages[0].Count != 3 {
		t.Errorf("top tag: got %s x%d, want popular x3", usages[0].Tag.Name, usages[0].Count)
	}
	if usages[1].Count != 1 {
		t.Errorf("second tag count: got %d, want 1", usages[1].Count)
	}

	// soft-deleted tasks drop out of the counts
	if _, err := db.DeleteTask(a.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	usages, err = db.GetMostUsedTags(5)
	if err != nil {
		t.Fatalf("GetMostUsedTags failed: %v", err)
	}
	if usages[0].Count != 2 {
		t.Errorf("count after soft delete: got %d, want 2", usages[0].Count)
	}
}
