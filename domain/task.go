package domain

import (
	"sort"
	"time"
)

// TaskPriority orders tasks by urgency.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is one of the three known priorities.
func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank maps priorities to a sortable order, highest last.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// TaskStatus is a task's lifecycle state.
type TaskStatus string

const (
	StatusTodo      TaskStatus = "todo"
	StatusActive    TaskStatus = "active"
	StatusCompleted TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	return s == StatusTodo || s == StatusActive || s == StatusCompleted
}

// Task is a unit of work owned by exactly one user. Tasks assigned by a
// friend carry the assigner's id and an email snapshot taken at assignment
// time.
type Task struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	DueDate         *time.Time   `json:"dueDate,omitempty"`
	Priority        TaskPriority `json:"priority"`
	Status          TaskStatus   `json:"status"`
	Flagged         bool         `json:"flagged"`
	OwnerID         string       `json:"-"`
	AssignedBy      string       `json:"assignedBy,omitempty"`
	AssignedByEmail string       `json:"assignedByEmail,omitempty"`
	CompletedAt     *time.Time   `json:"-"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// TaggedTask is a search-all result annotated with its origin.
type TaggedTask struct {
	Task
	IsAssigned bool `json:"isAssigned"`
}

// TaskQuery describes a filter over one owner's tasks. Zero values mean
// "no constraint". Storage implementations return matches sorted by
// creation time, newest first; view-specific orderings are applied by the
// task service.
type TaskQuery struct {
	Status       TaskStatus
	NotCompleted bool
	Priority     TaskPriority
	Flagged      *bool
	Search       string
	DueAfter     *time.Time // strictly after
	DueFrom      *time.Time // inclusive
	DueBefore    *time.Time // strictly before
	Assigned     bool       // only tasks carrying an assigner
}

// DashboardStats are the aggregated counters shown on the dashboard.
type DashboardStats struct {
	All       int64 `json:"all"`
	Today     int64 `json:"today"`
	Scheduled int64 `json:"scheduled"`
	Flagged   int64 `json:"flagged"`
	Completed int64 `json:"completed"`
	Friends   int64 `json:"friends"`
	Missed    int64 `json:"missed"`
}

// DayStart returns midnight of the day containing t, in t's location.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// UTCDayRange returns the start of the current and next UTC calendar day.
// The dashboard aggregator deliberately uses UTC boundaries while the
// today/missed/scheduled views use the server's local midnight.
func UTCDayRange(now time.Time) (start, next time.Time) {
	u := now.UTC()
	start = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func sortTasks(tasks []Task, less func(a, b Task) bool) {
	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
}

func byCreatedDesc(a, b Task) bool { return a.CreatedAt.After(b.CreatedAt) }

func byCompletedDesc(a, b Task) bool {
	at, bt := a.CompletedAt, b.CompletedAt
	switch {
	case at != nil && bt != nil && !at.Equal(*bt):
		return at.After(*bt)
	case at != nil && bt == nil:
		return true
	case at == nil && bt != nil:
		return false
	}
	return byCreatedDesc(a, b)
}

func byDueAsc(a, b Task) bool {
	if a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate) {
		return a.DueDate.Before(*b.DueDate)
	}
	return byCreatedDesc(a, b)
}

func byPriorityDesc(a, b Task) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	return byCreatedDesc(a, b)
}

func byDueAscPriorityDesc(a, b Task) bool {
	if a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate) {
		return a.DueDate.Before(*b.DueDate)
	}
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	return byCreatedDesc(a, b)
}
