package db

import (
	"errors"
	"testing"
	"time"

	"tasktree/internal/models"
)

func TestCreateTaskValidation(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)

	tests := []struct {
		name     string
		tc       TaskCreate
		wantKind error
	}{
		{"empty title", TaskCreate{Title: "  ", ListID: &list.ID}, ErrValidation},
		{"negative hours", TaskCreate{Title: "x", ListID: &list.ID, EstimatedHours: ptr(-1.0)}, ErrValidation},
		{"bad priority", TaskCreate{Title: "x", ListID: &list.ID, Priority: models.Priority(9)}, ErrValidation},
		{"missing list", TaskCreate{Title: "x", ListID: ptr(int64(999))}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.CreateTask(tt.tc); !errors.Is(err, tt.wantKind) {
				t.Errorf("CreateTask: got %v, want kind %v", err, tt.wantKind)
			}
		})
	}

	task, err := db.CreateTask(TaskCreate{Title: "unassigned", Priority: models.PriorityHigh})
	if err != nil {
		t.Fatalf("unassigned create failed: %v", err)
	}
	if task.ListID != nil {
		t.Errorf("list: got %v, want nil", task.ListID)
	}
	if task.Status != models.StatusPending {
		t.Errorf("new task status: got %s, want pending", task.Status)
	}
}

func TestCreateTaskInDeletedList(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "gone", nil)
	if _, err := db.DeleteList(list.ID, true); err != nil {
		t.Fatalf("DeleteList failed: %v", err)
	}
	if _, err := db.CreateTask(TaskCreate{Title: "x", ListID: &list.ID}); !errors.Is(err, ErrNotFound) {
		t.Errorf("create in deleted list: got %v, want ErrNotFound", err)
	}
}

func TestUpdateTaskPartial(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	task, err := db.CreateTask(TaskCreate{
		Title: "write report", Description: "quarterly", ListID: &list.ID,
		DueDate: &due, Priority: models.PriorityHigh, EstimatedHours: ptr(4.0),
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, err := db.UpdateTask(task.ID, TaskUpdate{Status: ptr(models.StatusCompleted)})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Errorf("status: got %s, want completed", got.Status)
	}
	if got.Title != "write report" || got.Priority != models.PriorityHigh {
		t.Errorf("unspecified fields changed: %+v", got)
	}

	// no state machine: completed straight back to blocked is legal
	got, err = db.UpdateTask(task.ID, TaskUpdate{Status: ptr(models.StatusBlocked)})
	if err != nil {
		t.Fatalf("completed -> blocked rejected: %v", err)
	}
	if got.Status != models.StatusBlocked {
		t.Errorf("status: got %s, want blocked", got.Status)
	}

	got, err = db.UpdateTask(task.ID, TaskUpdate{ClearDueDate: true, ClearEstimate: true})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if got.DueDate != nil || got.EstimatedHours != nil {
		t.Errorf("cleared fields still set: due=%v est=%v", got.DueDate, got.EstimatedHours)
	}

	if _, err := db.UpdateTask(task.ID, TaskUpdate{Status: ptr(models.Status("paused"))}); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown status: got %v, want ErrValidation", err)
	}
	if _, err := db.UpdateTask(999, TaskUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing task: got %v, want ErrNotFound", err)
	}
}

func TestDeleteTaskSoft(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	task := mustTask(t, db, "ephemeral", &list.ID)

	ok, err := db.DeleteTask(task.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteTask: got (%v, %v), want (true, nil)", ok, err)
	}
	// already deleted reports false
	ok, err = db.DeleteTask(task.ID)
	if err != nil || ok {
		t.Errorf("double delete: got (%v, %v), want (false, nil)", ok, err)
	}
	if _, err := db.GetTask(task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted task still resolves: %v", err)
	}

	tasks, err := db.ListTasks(&list.ID, nil, 0, 0)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("deleted task in listing: %v", tasks)
	}
}

func TestListTasksFilterAndPaging(t *testing.T) {
	db := testDB(t)

	list := mustList(t, db, "inbox", nil)
	other := mustList(t, db, "other", nil)
	for i := 0; i < 5; i++ {
		mustTask(t, db, "inbox task", &list.ID)
	}
	done := mustTask(t, db, "done task", &list.ID)
	if _, err := db.UpdateTask(done.ID, TaskUpdate{Status: ptr(models.StatusCompleted)}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	mustTask(t, db, "elsewhere", &other.ID)

	tasks, err := db.ListTasks(&list.ID, nil, 0, 0)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 6 {
		t.Fatalf("list filter: got %d tasks, want 6", len(tasks))
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i-1].ID >= tasks[i].ID {
			t.Fatalf("ordering not id ascending: %d before %d", tasks[i-1].ID, tasks[i].ID)
		}
	}

	completed := models.StatusCompleted
	tasks, err = db.ListTasks(&list.ID, &completed, 0, 0)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != done.ID {
		t.Errorf("status filter: got %v", tasks)
	}

	page, err := db.ListTasks(&list.ID, nil, 2, 2)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size: got %d, want 2", len(page))
	}
	all, _ := db.ListTasks(&list.ID, nil, 0, 0)
	if page[0].ID != all[2].ID {
		t.Errorf("offset: got first id %d, want %d", page[0].ID, all[2].ID)
	}
}
