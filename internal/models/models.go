package models

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a task. Transitions are unconstrained:
// any status may follow any other.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusBlocked    Status = "blocked"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusBlocked}

// ParseStatus converts a stored or user-supplied string into a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Priority orders tasks from Low to Critical. Stored as its integer value
// so the database can sort on it directly.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority converts a priority name into a Priority.
func ParsePriority(s string) (Priority, error) {
	for _, p := range []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// Valid reports whether p is one of the four defined priorities.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// AttributeType tags the value encoding of a custom attribute. Values are
// stored as strings and checked against the type at write time.
type AttributeType string

const (
	TypeText           AttributeType = "text"
	TypeInteger        AttributeType = "integer"
	TypeDecimal        AttributeType = "decimal"
	TypeDate           AttributeType = "date"
	TypeDateTime       AttributeType = "datetime"
	TypeBoolean        AttributeType = "boolean"
	TypeSingleChoice   AttributeType = "single_choice"
	TypeMultipleChoice AttributeType = "multiple_choice"
	TypeURL            AttributeType = "url"
	TypeFileReference  AttributeType = "file_reference"
)

// AttributeTypes lists every valid attribute type.
var AttributeTypes = []AttributeType{
	TypeText, TypeInteger, TypeDecimal, TypeDate, TypeDateTime,
	TypeBoolean, TypeSingleChoice, TypeMultipleChoice, TypeURL, TypeFileReference,
}

// ParseAttributeType converts a stored string into an AttributeType.
func ParseAttributeType(s string) (AttributeType, error) {
	for _, t := range AttributeTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown attribute type %q", s)
}

// EntityKind distinguishes which entity an attribute value or tag
// association belongs to.
type EntityKind string

const (
	KindTask EntityKind = "task"
	KindList EntityKind = "list"
)

// List represents a task list. Lists form a tree through ParentID.
type List struct {
	ID          int64
	Name        string
	Description string
	ParentID    *int64 // nil for root lists
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time

	// Populated by flat hierarchy reads.
	Path  []string
	Depth int
}

// ListNode is a list with its children nested, for hierarchical reads.
type ListNode struct {
	List
	Children []*ListNode
}

// Task represents a single task. ListID is nil when the task is
// explicitly unassigned.
type Task struct {
	ID             int64
	ListID         *int64
	Title          string
	Description    string
	Status         Status
	Priority       Priority
	DueDate        *time.Time
	EstimatedHours *float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
	Tags           []Tag // populated when loading task details
}

// Tag is a shared label. Tags form a tree through ParentID and are
// attached to tasks and lists by id.
type Tag struct {
	ID        int64
	Name      string
	Color     string
	ParentID  *int64
	CreatedAt time.Time
}

// AttributeRules is the structured constraint set of a definition,
// interpreted per attribute type. Stored as JSON.
type AttributeRules struct {
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Choices   []string `json:"choices,omitempty"`
}

// AttributeDefinition declares a custom attribute shared process-wide.
type AttributeDefinition struct {
	ID           int64
	Name         string
	Type         AttributeType
	Required     bool
	DefaultValue *string
	Rules        *AttributeRules
	CreatedAt    time.Time
}

// AttributeValue is one string-encoded value attached to a task or list.
// At most one value exists per (entity, definition) pair.
type AttributeValue struct {
	EntityKind   EntityKind
	EntityID     int64
	DefinitionID int64
	Value        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Template is a reusable snapshot of a list's tasks.
type Template struct {
	ID          int64
	Name        string
	Description string
	Category    string
	Version     int
	CreatedAt   time.Time
	DeletedAt   *time.Time
	Tasks       []TemplateTask // populated when loading template details
}

// TemplateTask is one task snapshot inside a template. It is a decoupled
// copy, never a live reference to the source task.
type TemplateTask struct {
	Position       int
	Title          string
	Description    string
	EstimatedHours *float64
	Priority       Priority
}
