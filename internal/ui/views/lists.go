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

// ErrMsg reports a failed store operation to the app for logging and
// display.
type ErrMsg struct {
	Op  string
	Err error
}

// SelectedList is emitted when the user opens a list.
type SelectedList struct {
	List models.List
}

// BackToLists is emitted when the user leaves the tasks view.
type BackToLists struct{}

type listItem struct {
	list models.List
}

func (i listItem) Title() string       { return i.list.Name }
func (i listItem) Description() string { return i.list.Description }
func (i listItem) FilterValue() string { return i.list.Name }

type listDelegate struct {
	styles *styles.Styles
	width  int
}

func (d listDelegate) Height() int                               { return 2 }
func (d listDelegate) Spacing() int                              { return 1 }
func (d listDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d listDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	li, ok := item.(listItem)
	if !ok {
		return
	}

	selected := index == m.Index()
	width := max(d.width-4, 20)
	indent := strings.Repeat("  ", li.list.Depth)

	var titleStyle, descStyle lipgloss.Style
	if selected {
		titleStyle = d.styles.ListSelected.Width(width)
		descStyle = d.styles.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	} else {
		titleStyle = d.styles.ListItem.Width(width)
		descStyle = d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	desc := li.list.Description
	if desc == "" {
		desc = strings.Join(li.list.Path, " / ")
	}

	fmt.Fprintf(w, "%s\n%s",
		titleStyle.Render(indent+li.list.Name),
		descStyle.Render(indent+desc))
}

// ListsView shows the list hierarchy and handles create/delete.
type ListsView struct {
	db       *db.DB
	list     list.Model
	delegate *listDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int

	creating         bool
	newName          textinput.Model
	newDesc          textinput.Model
	focusIdx         int // 0=name, 1=desc
	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string
	errText          string
}

// NewListsView creates the hierarchy view.
func NewListsView(database *db.DB) *ListsView {
	s := styles.NewStyles()

	newName := textinput.New()
	newName.Placeholder = "List name"
	newName.CharLimit = 200

	newDesc := textinput.New()
	newDesc.Placeholder = "Description (optional)"
	newDesc.CharLimit = 200

	delegate := &listDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Lists"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &ListsView{
		db:       database,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		newName:  newName,
		newDesc:  newDesc,
	}
}

func (v *ListsView) Init() tea.Cmd {
	return v.loadLists
}

type listsLoadedMsg struct {
	lists []models.List
}

func (v *ListsView) loadLists() tea.Msg {
	roots, err := v.db.GetListTree()
	if err != nil {
		return ErrMsg{Op: "load lists", Err: err}
	}
	var flat []models.List
	var walk func(nodes []*models.ListNode)
	walk = func(nodes []*models.ListNode) {
		for _, n := range nodes {
			flat = append(flat, n.List)
			walk(n.Children)
		}
	}
	walk(roots)
	return listsLoadedMsg{lists: flat}
}

func (v *ListsView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.delegate.width = msg.Width
		v.list.SetSize(msg.Width, msg.Height-2)
		return v, nil

	case listsLoadedMsg:
		items := make([]list.Item, len(msg.lists))
		for i, l := range msg.lists {
			items[i] = listItem{list: l}
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
		if v.confirmingDelete {
			return v.updateConfirmingDelete(msg)
		}
		if v.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit

		case key.Matches(msg, v.keys.New):
			v.creating = true
			v.focusIdx = 0
			v.newName.SetValue("")
			v.newDesc.SetValue("")
			v.newName.Focus()
			return v, textinput.Blink

		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(listItem); ok {
				return v, func() tea.Msg { return SelectedList{List: item.list} }
			}
			return v, nil

		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(listItem); ok {
				v.confirmingDelete = true
				v.deleteTargetID = item.list.ID
				v.deleteTargetName = item.list.Name
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *ListsView) updateCreating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.creating = false
		return v, nil

	case msg.String() == "tab":
		v.focusIdx = (v.focusIdx + 1) % 2
		if v.focusIdx == 0 {
			v.newName.Focus()
			v.newDesc.Blur()
		} else {
			v.newName.Blur()
			v.newDesc.Focus()
		}
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Enter):
		name := v.newName.Value()
		desc := v.newDesc.Value()
		// New lists nest under the current selection.
		var parentID *int64
		if item, ok := v.list.SelectedItem().(listItem); ok {
			id := item.list.ID
			parentID = &id
		}
		v.creating = false
		return v, func() tea.Msg {
			if _, err := v.db.CreateList(name, desc, parentID); err != nil {
				return ErrMsg{Op: "create list", Err: err}
			}
			return v.loadLists()
		}
	}

	var cmd tea.Cmd
	if v.focusIdx == 0 {
		v.newName, cmd = v.newName.Update(msg)
	} else {
		v.newDesc, cmd = v.newDesc.Update(msg)
	}
	return v, cmd
}

func (v *ListsView) updateConfirmingDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := v.deleteTargetID
		v.confirmingDelete = false
		return v, func() tea.Msg {
			if _, err := v.db.DeleteList(id, true); err != nil {
				return ErrMsg{Op: "delete list", Err: err}
			}
			return v.loadLists()
		}
	case "n", "N", "esc":
		v.confirmingDelete = false
	}
	return v, nil
}

func (v *ListsView) View() string {
	if v.creating {
		nameStyle, descStyle := v.styles.InputFocused, v.styles.Input
		if v.focusIdx == 1 {
			nameStyle, descStyle = v.styles.Input, v.styles.InputFocused
		}
		parent := "(root)"
		if item, ok := v.list.SelectedItem().(listItem); ok {
			parent = item.list.Name
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			v.styles.Title.Render("New list under "+parent),
			nameStyle.Render(v.newName.View()),
			descStyle.Render(v.newDesc.View()),
			v.styles.Help.Render("tab switch · enter create · esc cancel"),
		)
	}

	if v.confirmingDelete {
		return lipgloss.JoinVertical(lipgloss.Left,
			v.styles.Title.Render("Delete list"),
			v.styles.ListItem.Render(fmt.Sprintf("Delete %q and everything under it? (y/n)", v.deleteTargetName)),
		)
	}

	status := "n new · enter open · d delete · / filter · q quit"
	if v.errText != "" {
		status = v.errText
	}
	bar := v.styles.StatusBar.Render(status)
	if v.errText != "" {
		bar = v.styles.Error.Render(status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, v.list.View(), bar)
}
