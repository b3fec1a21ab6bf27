package ui

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"tasktree/internal/db"
	"tasktree/internal/logging"
	"tasktree/internal/models"
	"tasktree/internal/ui/views"
)

// Currently active view
type View int

const (
	ViewLists View = iota
	ViewTasks
)

type App struct {
	db          *db.DB
	log         *logging.SessionLogger
	pageSize    int
	currentView View
	listsView   *views.ListsView
	tasksView   *views.TasksView
	width       int
	height      int
}

// NewApp creates the application shell.
func NewApp(database *db.DB, log *logging.SessionLogger, pageSize int) *App {
	return &App{
		db:          database,
		log:         log,
		pageSize:    pageSize,
		currentView: ViewLists,
		listsView:   views.NewListsView(database),
	}
}

func (a *App) Init() tea.Cmd {
	// Reopen the last viewed list if it still exists.
	lastListID, err := a.db.GetSetting("last_list_id")
	if err == nil && lastListID != "" {
		id, err := strconv.ParseInt(lastListID, 10, 64)
		if err == nil {
			listRec, err := a.db.GetList(id)
			if err == nil {
				return a.openList(*listRec)
			}
		}
	}

	return a.listsView.Init()
}

func (a *App) openList(listRec models.List) tea.Cmd {
	a.currentView = ViewTasks
	a.tasksView = views.NewTasksView(a.db, listRec, a.pageSize)

	if err := a.db.SetSetting("last_list_id", strconv.FormatInt(listRec.ID, 10)); err != nil {
		a.log.Error("save last list", err)
	}

	return tea.Batch(
		a.tasksView.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		},
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Always update list view size since it persists
		a.listsView.Update(msg)

	case views.ErrMsg:
		a.log.Error(msg.Op, msg.Err)

	case views.SelectedList:
		return a, a.openList(msg.List)

	case views.BackToLists:
		a.currentView = ViewLists
		if err := a.db.SetSetting("last_list_id", ""); err != nil {
			a.log.Error("clear last list", err)
		}
		return a, tea.Batch(
			a.listsView.Init(),
			func() tea.Msg {
				return tea.WindowSizeMsg{Width: a.width, Height: a.height}
			},
		)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewLists:
		_, cmd = a.listsView.Update(msg)
	case ViewTasks:
		_, cmd = a.tasksView.Update(msg)
	}

	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewTasks:
		if a.tasksView != nil {
			return a.tasksView.View()
		}
	}
	return a.listsView.View()
}
