package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasktree/internal/db"
	"tasktree/internal/models"
	"tasktree/internal/ui/keys"
	"tasktree/internal/ui/styles"
)

type taskItem struct {
	task models.Task
}

func (i taskItem) Title() string       { return i.task.Title }
func (i taskItem) Description() string { return i.task.Description }
func (i taskItem) FilterValue() string { return i.task.Title }

type taskDelegate struct {
	styles *styles.Styles
	width  int
}

func (d taskDelegate) Height() int                               { return 1 }
func (d taskDelegate) Spacing() int                              { return 0 }
func (d taskDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d taskDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(taskItem)
	if !ok {
		return
	}
	t := ti.task

	icon := lipgloss.NewStyle().
		Foreground(styles.StatusColor(t.Status)).
		Render(styles.StatusIcon(t.Status))

	var marks []string
	if t.Priority >= models.PriorityHigh {
		marks = append(marks, d.styles.TaskPriority.Render(strings.Repeat("!", int(t.Priority)-1)))
	}
	if t.DueDate != nil {
		marks = append(marks, d.styles.TitleMuted.Render(t.DueDate.Format("Jan 02")))
	}
	for _, tag := range t.Tags {
		marks = append(marks, d.styles.Tag.Render("#"+tag.Name))
	}

	line := icon + " " + t.Title
	if len(marks) > 0 {
		line += "  " + strings.Join(marks, " ")
	}

	width := max(d.width-4, 20)
	style := d.styles.ListItem
	if index == m.Index() {
		style = d.styles.ListSelected
	}
	fmt.Fprint(w, style.Width(width).Render(line))
}

// TasksView shows and edits the tasks of one list.
type TasksView struct {
	db       *db.DB
	listRec  models.List
	pageSize int
	list     list.Model
	delegate *taskDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int

	filter        textinput.Model
	filterFocused bool
	hideDone      bool
	creating      bool
	newTitle      textinput.Model
	errText       string
}

// NewTasksView creates the task view for one list.
func NewTasksView(database *db.DB, listRec models.List, pageSize int) *TasksView {
	s := styles.NewStyles()

	filter := textinput.New()
	filter.Placeholder = "Search tasks..."
	filter.CharLimit = 100

	newTitle := textinput.New()
	newTitle.Placeholder = "Task title"
	newTitle.CharLimit = 200

	delegate := &taskDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = listRec.Name
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &TasksView{
		db:       database,
		listRec:  listRec,
		pageSize: pageSize,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		filter:   filter,
		newTitle: newTitle,
	}
}

func (v *TasksView) Init() tea.Cmd {
	return v.loadTasks
}

type tasksLoadedMsg struct {
	tasks []models.Task
}

func (v *TasksView) loadTasks() tea.Msg {
	s := db.DefaultTaskSearch()
	s.Query = v.filter.Value()
	s.ListID = &v.listRec.ID
	s.IncludeCompleted = !v.hideDone
	s.IncludeCancelled = !v.hideDone
	s.Limit = v.pageSize
	s.SortBy = db.SortPriority
	s.SortDesc = true

	tasks, err := v.db.SearchTasks(s)
	if err != nil {
		return ErrMsg{Op: "load tasks", Err: err}
	}
	return tasksLoadedMsg{tasks: tasks}
}

func (v *TasksView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.delegate.width = msg.Width
		v.list.SetSize(msg.Width, msg.Height-4)
		return v, nil

	case tasksLoadedMsg:
		items := make([]list.Item, len(msg.tasks))
		for i, t := range msg.tasks {
			items[i] = taskItem{task: t}
		}
		v.errText = ""
		return v, v.list.SetItems(items)

	case ErrMsg:
		v.errText = msg.Err.Error()
		return v, nil

	case tea.KeyMsg:
		if v.creating {
			return v.updateCreating(msg)
		}
		if v.filterFocused {
			return v.updateFiltering(msg)
		}

		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit

		case key.Matches(msg, v.keys.Back):
			return v, func() tea.Msg { return BackToLists{} }

		case key.Matches(msg, v.keys.Filter):
			v.filterFocused = true
			v.filter.Focus()
			return v, textinput.Blink

		case key.Matches(msg, v.keys.New):
			v.creating = true
			v.newTitle.SetValue("")
			v.newTitle.Focus()
			return v, textinput.Blink

		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(taskItem); ok {
				id := item.task.ID
				return v, func() tea.Msg {
					if _, err := v.db.DeleteTask(id); err != nil {
						return ErrMsg{Op: "delete task", Err: err}
					}
					return v.loadTasks()
				}
			}
			return v, nil

		case key.Matches(msg, v.keys.CycleStatus):
			if item, ok := v.list.SelectedItem().(taskItem); ok {
				id := item.task.ID
				next := nextStatus(item.task.Status)
				return v, func() tea.Msg {
					if _, err := v.db.UpdateTask(id, db.TaskUpdate{Status: &next}); err != nil {
						return ErrMsg{Op: "update task", Err: err}
					}
					return v.loadTasks()
				}
			}
			return v, nil

		case key.Matches(msg, v.keys.ToggleDone):
			v.hideDone = !v.hideDone
			return v, v.loadTasks
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// nextStatus walks the display order, wrapping around.
func nextStatus(cur models.Status) models.Status {
	for i, st := range models.Statuses {
		if st == cur {
			return models.Statuses[(i+1)%len(models.Statuses)]
		}
	}
	return models.StatusPending
}

func (v *TasksView) updateFiltering(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.filterFocused = false
		v.filter.Blur()
		v.filter.SetValue("")
		return v, v.loadTasks
	case key.Matches(msg, v.keys.Enter):
		v.filterFocused = false
		v.filter.Blur()
		return v, v.loadTasks
	}

	var cmd tea.Cmd
	v.filter, cmd = v.filter.Update(msg)
	return v, tea.Batch(cmd, v.loadTasks)
}

func (v *TasksView) updateCreating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.creating = false
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		title := v.newTitle.Value()
		v.creating = false
		return v, func() tea.Msg {
			_, err := v.db.CreateTask(db.TaskCreate{
				Title:    title,
				ListID:   &v.listRec.ID,
				Priority: models.PriorityNormal,
			})
			if err != nil {
				return ErrMsg{Op: "create task", Err: err}
			}
			return v.loadTasks()
		}
	}

	var cmd tea.Cmd
	v.newTitle, cmd = v.newTitle.Update(msg)
	return v, cmd
}

func (v *TasksView) View() string {
	if v.creating {
		return lipgloss.JoinVertical(lipgloss.Left,
			v.styles.Title.Render("New task in "+v.listRec.Name),
			v.styles.InputFocused.Render(v.newTitle.View()),
			v.styles.Help.Render("enter create · esc cancel"),
		)
	}

	filterStyle := v.styles.Input
	if v.filterFocused {
		filterStyle = v.styles.InputFocused
	}

	status := "n new · s status · d delete · c hide done · / search · esc back"
	if v.hideDone {
		status = "hiding done · " + status
	}
	bar := v.styles.StatusBar.Render(status)
	if v.errText != "" {
		bar = v.styles.Error.Render(v.errText)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		filterStyle.Render(v.filter.View()),
		v.list.View(),
		bar,
	)
}
