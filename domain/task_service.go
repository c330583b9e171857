package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TaskDraft is the input for creating a task.
type TaskDraft struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    TaskPriority
	Status      TaskStatus
	Flagged     bool
}

// TaskPatch is a partial update; nil fields are left untouched.
// ClearDueDate removes the due date regardless of DueDate.
type TaskPatch struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Priority     *TaskPriority
	Status       *TaskStatus
	Flagged      *bool
}

// ListFilter carries the general task-list query parameters. Unknown enum
// values are ignored rather than rejected, matching the list endpoint's
// permissive contract.
type ListFilter struct {
	Status   string
	Priority string
	Flagged  *bool
	Search   string
	// All discards the status filter and excludes completed tasks.
	All bool
}

// TaskView selects one of the specialized task listings.
type TaskView int

const (
	ViewCompleted TaskView = iota
	ViewScheduled
	ViewFlagged
	ViewToday
	ViewMissed
)

// TaskService provides owner-scoped task queries, mutation, the assignment
// flow and the dashboard aggregation.
type TaskService struct {
	tasks   TaskStorage
	friends FriendStorage
	users   UserStorage
	now     func() time.Time
}

func NewTaskService(tasks TaskStorage, friends FriendStorage, users UserStorage) *TaskService {
	return &TaskService{tasks: tasks, friends: friends, users: users, now: time.Now}
}

// List returns the owner's tasks matching all active filters, newest first.
func (s *TaskService) List(ctx context.Context, ownerID string, f ListFilter) ([]Task, error) {
	q := TaskQuery{Search: strings.TrimSpace(f.Search), Flagged: f.Flagged}
	if st := TaskStatus(f.Status); st.Valid() {
		q.Status = st
	}
	if p := TaskPriority(f.Priority); p.Valid() {
		q.Priority = p
	}
	if f.All {
		q.Status = ""
		q.NotCompleted = true
	}
	tasks, err := s.tasks.ListTasks(ctx, ownerID, q)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// View returns one of the specialized listings, optionally narrowed by a
// free-text search. Day boundaries use the server's local midnight.
func (s *TaskService) View(ctx context.Context, ownerID string, view TaskView, search string) ([]Task, error) {
	q := TaskQuery{Search: strings.TrimSpace(search)}
	less := byCreatedDesc

	today := DayStart(s.now())
	tomorrow := today.AddDate(0, 0, 1)

	switch view {
	case ViewCompleted:
		q.Status = StatusCompleted
		less = byCompletedDesc
	case ViewScheduled:
		t := today
		q.DueAfter = &t
		q.NotCompleted = true
		less = byDueAsc
	case ViewFlagged:
		flagged := true
		q.Flagged = &flagged
		less = byPriorityDesc
	case ViewToday:
		from, until := today, tomorrow
		q.DueFrom = &from
		q.DueBefore = &until
		less = byPriorityDesc
	case ViewMissed:
		until := today
		q.DueBefore = &until
		q.NotCompleted = true
		less = byDueAscPriorityDesc
	default:
		return nil, Invalid("Unknown task view")
	}

	tasks, err := s.tasks.ListTasks(ctx, ownerID, q)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	sortTasks(tasks, less)
	return tasks, nil
}

// Assigned returns tasks assigned to the owner by others, newest first.
func (s *TaskService) Assigned(ctx context.Context, ownerID string) ([]Task, error) {
	tasks, err := s.tasks.ListTasks(ctx, ownerID, TaskQuery{Assigned: true})
	if err != nil {
		return nil, fmt.Errorf("list assigned tasks: %w", err)
	}
	return tasks, nil
}

// SearchAll unions the owner's matching tasks with matching assigned-in
// tasks, de-duplicated by id with the first occurrence winning.
func (s *TaskService) SearchAll(ctx context.Context, ownerID, term string) ([]TaggedTask, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, Invalid("Search query is required")
	}

	own, err := s.tasks.ListTasks(ctx, ownerID, TaskQuery{Search: term})
	if err != nil {
		return nil, fmt.Errorf("search own tasks: %w", err)
	}
	assigned, err := s.tasks.ListTasks(ctx, ownerID, TaskQuery{Search: term, Assigned: true})
	if err != nil {
		return nil, fmt.Errorf("search assigned tasks: %w", err)
	}

	seen := make(map[string]struct{}, len(own)+len(assigned))
	out := make([]TaggedTask, 0, len(own)+len(assigned))
	for _, t := range own {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, TaggedTask{Task: t})
	}
	for _, t := range assigned {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, TaggedTask{Task: t, IsAssigned: true})
	}
	return out, nil
}

// Get returns a single task owned by ownerID.
func (s *TaskService) Get(ctx context.Context, ownerID, id string) (Task, error) {
	t, err := s.tasks.TaskByID(ctx, id, ownerID)
	if err != nil {
		return Task{}, fmt.Errorf("lookup task: %w", err)
	}
	if t == nil {
		return Task{}, NotFound("Resource not found")
	}
	return *t, nil
}

// Create stores a new task for ownerID, applying the documented defaults.
func (s *TaskService) Create(ctx context.Context, ownerID string, d TaskDraft) (Task, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Task{}, Invalid("Title is required")
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if !d.Priority.Valid() {
		return Task{}, Invalid("Priority must be low, medium, or high")
	}
	if d.Status == "" {
		d.Status = StatusTodo
	}
	if !d.Status.Valid() {
		return Task{}, Invalid("Status must be todo, active, or completed")
	}

	now := s.now()
	t := Task{
		Title:       title,
		Description: strings.TrimSpace(d.Description),
		DueDate:     d.DueDate,
		Priority:    d.Priority,
		Status:      d.Status,
		Flagged:     d.Flagged,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == StatusCompleted {
		t.CompletedAt = &now
	}
	created, err := s.tasks.InsertTask(ctx, t)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return created, nil
}

// Update applies a partial update to an owned task. Completion time is
// tracked here: entering completed stamps it, leaving completed clears it.
func (s *TaskService) Update(ctx context.Context, ownerID, id string, p TaskPatch) (Task, error) {
	t, err := s.tasks.TaskByID(ctx, id, ownerID)
	if err != nil {
		return Task{}, fmt.Errorf("lookup task: %w", err)
	}
	if t == nil {
		return Task{}, NotFound("Resource not found")
	}

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Task{}, Invalid("Title cannot be empty")
		}
		t.Title = title
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return Task{}, Invalid("Priority must be low, medium, or high")
		}
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return Task{}, Invalid("Status must be todo, active, or completed")
		}
		now := s.now()
		if *p.Status == StatusCompleted && t.Status != StatusCompleted {
			t.CompletedAt = &now
		}
		if *p.Status != StatusCompleted {
			t.CompletedAt = nil
		}
		t.Status = *p.Status
	}
	if p.Flagged != nil {
		t.Flagged = *p.Flagged
	}
	t.UpdatedAt = s.now()

	updated, err := s.tasks.UpdateTask(ctx, *t)
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	if updated == nil {
		return Task{}, NotFound("Resource not found")
	}
	return *updated, nil
}

// Delete removes an owned task.
func (s *TaskService) Delete(ctx context.Context, ownerID, id string) error {
	deleted, err := s.tasks.DeleteTask(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		return NotFound("Resource not found")
	}
	return nil
}

// Assign copies an owned task to an accepted friend. The copy is owned by
// the friend, reset to todo, and stamped with the actor's id and email;
// the source task is untouched. A missing friendship is a bad request
// rather than a permission error: the actor simply cannot use this flow.
func (s *TaskService) Assign(ctx context.Context, actor User, taskID, friendID string) (Task, error) {
	if friendID == "" {
		return Task{}, Invalid("Friend ID is required")
	}

	friendship, err := s.friends.AcceptedBetween(ctx, actor.ID, friendID)
	if err != nil {
		return Task{}, fmt.Errorf("lookup friendship: %w", err)
	}
	if friendship == nil {
		return Task{}, Invalid("Friendship does not exist")
	}

	source, err := s.tasks.TaskByID(ctx, taskID, actor.ID)
	if err != nil {
		return Task{}, fmt.Errorf("lookup task: %w", err)
	}
	if source == nil {
		return Task{}, NotFound("Task not found")
	}

	friend, err := s.users.UserByID(ctx, friendID)
	if err != nil {
		return Task{}, fmt.Errorf("lookup friend: %w", err)
	}
	if friend == nil {
		return Task{}, NotFound("Friend not found")
	}

	now := s.now()
	created, err := s.tasks.InsertTask(ctx, Task{
		Title:           source.Title,
		Description:     source.Description,
		DueDate:         source.DueDate,
		Priority:        source.Priority,
		Status:          StatusTodo,
		OwnerID:         friend.ID,
		AssignedBy:      actor.ID,
		AssignedByEmail: actor.Email,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return Task{}, fmt.Errorf("insert assigned task: %w", err)
	}
	return created, nil
}

// DashboardStats computes the seven dashboard counters. "Today" here is the
// UTC calendar date, unlike the per-view listings which use local midnight.
func (s *TaskService) DashboardStats(ctx context.Context, ownerID string) (DashboardStats, error) {
	todayStart, tomorrowStart := UTCDayRange(s.now())
	flagged := true

	counts := []struct {
		dst *int64
		q   TaskQuery
	}{
		{nil, TaskQuery{NotCompleted: true}},
		{nil, TaskQuery{NotCompleted: true, DueFrom: &todayStart, DueBefore: &tomorrowStart}},
		{nil, TaskQuery{NotCompleted: true, DueFrom: &tomorrowStart}},
		{nil, TaskQuery{Flagged: &flagged}},
		{nil, TaskQuery{Status: StatusCompleted}},
		{nil, TaskQuery{Assigned: true}},
		{nil, TaskQuery{NotCompleted: true, DueBefore: &todayStart}},
	}

	var stats DashboardStats
	counts[0].dst = &stats.All
	counts[1].dst = &stats.Today
	counts[2].dst = &stats.Scheduled
	counts[3].dst = &stats.Flagged
	counts[4].dst = &stats.Completed
	counts[5].dst = &stats.Friends
	counts[6].dst = &stats.Missed

	for _, c := range counts {
		n, err := s.tasks.CountTasks(ctx, ownerID, c.q)
		if err != nil {
			return DashboardStats{}, fmt.Errorf("count tasks: %w", err)
		}
		*c.dst = n
	}
	return stats, nil
}
