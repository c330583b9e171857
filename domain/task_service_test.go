package domain

import (
	"context"
	"testing"
	"time"
)

type taskFixture struct {
	svc     *TaskService
	users   *fakeUsers
	friends *fakeFriends
	tasks   *fakeTasks
	now     time.Time
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	f := &taskFixture{
		users:   newFakeUsers(),
		friends: newFakeFriends(),
		tasks:   newFakeTasks(),
		now:     time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
	}
	f.svc = NewTaskService(f.tasks, f.friends, f.users)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *taskFixture) seed(t *testing.T, owner User, d TaskDraft) Task {
	t.Helper()
	task, err := f.svc.Create(context.Background(), owner.ID, d)
	if err != nil {
		t.Fatalf("seed task %q: %v", d.Title, err)
	}
	return task
}

func TestCreateAppliesDefaults(t *testing.T) {
	f := newTaskFixture(t)
	owner := f.users.add("Alice", "alice@example.com")

	task := f.seed(t, owner, TaskDraft{Title: "  Buy milk  "})
	if task.Title != "Buy milk" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
	if task.Priority != PriorityMedium || task.Status != StatusTodo || task.Flagged {
		t.Fatalf("unexpected defaults: %+v", task)
	}

	if _, err := f.svc.Create(context.Background(), owner.ID, TaskDraft{Title: "   "}); KindOf(err) != KindInvalid {
		t.Fatalf("expected invalid for empty title, got %v", err)
	}
	if _, err := f.svc.Create(context.Background(), owner.ID, TaskDraft{Title: "x", Priority: "urgent"}); KindOf(err) != KindInvalid {
		t.Fatalf("expected invalid for bad priority, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	f := newTaskFixture(t)
	owner := f.users.add("Alice", "alice@example.com")
	ctx := context.Background()

	f.seed(t, owner, TaskDraft{Title: "Write report", Priority: PriorityHigh, Status: StatusActive})
	f.seed(t, owner, TaskDraft{Title: "Buy milk", Status: StatusCompleted})
	f.seed(t, owner, TaskDraft{Title: "Call dentist", Flagged: true})

	active, err := f.svc.List(ctx, owner.ID, ListFilter{Status: "active"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].Title != "Write report" {
		t.Fatalf("unexpected status filter result: %+v", active)
	}

	flagged := true
	got, err := f.svc.List(ctx, owner.ID, ListFilter{Flagged: &flagged})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Call dentist" {
		t.Fatalf("unexpected flagged filter result: %+v", got)
	}

	// The all flag discards any status filter and hides completed tasks.
	all, err := f.svc.List(ctx, owner.ID, ListFilter{Status: "completed", All: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 non-completed tasks, got %d", len(all))
	}

	found, err := f.svc.List(ctx, owner.ID, ListFilter{Search: "MILK"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(found) != 1 || found[0].Title != "Buy milk" {
		t.Fatalf("case-insensitive search failed: %+v", found)
	}
}

func TestViewWindows(t *testing.T) {
	f := newTaskFixture(t)
	owner := f.users.add("Alice", "alice@example.com")
	ctx := context.Background()

	today := DayStart(f.now)
	yesterday := today.AddDate(0, 0, -1).Add(9 * time.Hour)
	laterToday := today.Add(14 * time.Hour)
	tomorrow := today.AddDate(0, 0, 1).Add(9 * time.Hour)

	missed := f.seed(t, owner, TaskDraft{Title: "Missed", DueDate: &yesterday})
	f.seed(t, owner, TaskDraft{Title: "Due today", DueDate: &laterToday})
	f.seed(t, owner, TaskDraft{Title: "Scheduled", DueDate: &tomorrow})
	f.seed(t, owner, TaskDraft{Title: "Done late", DueDate: &yesterday, Status: StatusCompleted})

	assertView := func(view TaskView, want ...string) {
		t.Helper()
		got, err := f.svc.View(ctx, owner.ID, view, "")
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d tasks, got %+v", len(want), got)
		}
		for i, title := range want {
			if got[i].Title != title {
				t.Fatalf("position %d: expected %q, got %q", i, title, got[i].Title)
			}
		}
	}

	assertView(ViewMissed, "Missed")
	assertView(ViewToday, "Due today")
	// A due time later today is strictly after local midnight, so the
	// scheduled view includes it alongside tomorrow's task.
	assertView(ViewScheduled, "Due today", "Scheduled")
	assertView(ViewCompleted, "Done late")

	// Moving the due date moves the task across views.
	if _, err := f.svc.Update(ctx, owner.ID, missed.ID, TaskPatch{DueDate: &laterToday}); err != nil {
		t.Fatalf("update: %v", err)
	}
	assertView(ViewMissed)
	assertView(ViewToday, "Due today", "Missed")
}

func TestFlaggedViewSortsByPriority(t *testing.T) {
	f := newTaskFixture(t)
	owner := f.users.add("Alice", "alice@example.com")
	ctx := context.Background()

	f.seed(t, owner, TaskDraft{Title: "Low", Priority: PriorityLow, Flagged: true})
	f.seed(t, owner, TaskDraft{Title: "High", Priority: PriorityHigh, Flagged: true})
	f.seed(t, owner, TaskDraft{Title: "Medium", Priority: PriorityMedium, Flagged: true})
	f.seed(t, owner, TaskDraft{Title: "Unflagged", Priority: PriorityHigh})

	got, err := f.svc.View(ctx, owner.ID, ViewFlagged, "")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(got) != 3 || got[0].Title != "High" || got[1].Title != "Medium" || got[2].Title != "Low" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestCompletedViewSortsByCompletionTime(t *testing.T) {
	f := newTaskFixture(t)
	owner := f.users.add("Alice", "alice@example.com")
	ctx := context.Background()

	first := f.seed(t, owner, TaskDraft{Title: "First"})
	second := f.seed(t, owner, TaskDraft{Title: "Second"})

	done := StatusCompleted
	f.now = f.now.Add(time.Hour)
	if _, err := f.svc.Update(ctx, owner.ID, second.ID, TaskPatch{Status: &done}); err != nil {
		t.Fatalf("update: %v", err)
	}
	f.now = f.now.Add(time.Hour)
	if _, err := f.svc.Update(ctx, owner.ID, first.ID, TaskPatch{Status: &done}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := f.svc.View(ctx, owner.ID, ViewCompleted, "")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(got) != 2 || got[0].Title != "First" || got[1].Title != "Second" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestUpdateOwnershipAndDueDateClearing(t *testing.T) {
	f := newTaskFixture(t)
	alice := f.users.add("Alice", "alice@example.com")
	bob := f.users.add("Bob", "bob@example.com")
	ctx := context.Background()

	due := f.now.AddDate(0, 0, 3)
	task := f.seed(t, alice, TaskDraft{Title: "Report", DueDate: &due})

	if _, err := f.svc.Update(ctx, bob.ID, task.ID, TaskPatch{}); KindOf(err) != KindNotFound {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}

	updated, err := f.svc.Update(ctx, alice.ID, task.ID, TaskPatch{ClearDueDate: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DueDate != nil {
		t.Fatalf("expected cleared due date, got %v", updated.DueDate)
	}

	empty := "  "
	if _, err := f.svc.Update(ctx, alice.ID, task.ID, TaskPatch{Title: &empty}); KindOf(err) != KindInvalid {
		t.Fatalf("expected invalid for blank title, got %v", err)
	}
}

func TestUpdateTracksCompletionTime(t *testing.T) {
	f := newTaskFixture(t)
	owner := f.users.add("Alice", "alice@example.com")
	ctx := context.Background()

	task := f.seed(t, owner, TaskDraft{Title: "Chore"})

	done := StatusCompleted
	f.now = f.now.Add(time.Hour)
	updated, err := f.svc.Update(ctx, owner.ID, task.ID, TaskPatch{Status: &done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CompletedAt == nil || !updated.CompletedAt.Equal(f.now) {
		t.Fatalf("expected completion stamp %v, got %v", f.now, updated.CompletedAt)
	}

	todo := StatusTodo
	updated, err = f.svc.Update(ctx, owner.ID, task.ID, TaskPatch{Status: &todo})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CompletedAt != nil {
		t.Fatalf("expected completion stamp cleared, got %v", updated.CompletedAt)
	}
}

func TestDeleteIsOwnerScoped(t *testing.T) {
	f := newTaskFixture(t)
	alice := f.users.add("Alice", "alice@example.com")
	bob := f.users.add("Bob", "bob@example.com")
	ctx := context.Background()

	task := f.seed(t, alice, TaskDraft{Title: "Mine"})

	if err := f.svc.Delete(ctx, bob.ID, task.ID); KindOf(err) != KindNotFound {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
	if err := f.svc.Delete(ctx, alice.ID, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Delete(ctx, alice.ID, task.ID); KindOf(err) != KindNotFound {
		t.Fatalf("expected not found on repeat delete, got %v", err)
	}
}

func TestAssignRequiresAcceptedFriendship(t *testing.T) {
	f := newTaskFixture(t)
	alice := f.users.add("Alice", "alice@example.com")
	bob := f.users.add("Bob", "bob@example.com")
	ctx := context.Background()

	task := f.seed(t, alice, TaskDraft{Title: "Shared chore", Priority: PriorityHigh, Status: StatusActive, Flagged: true})

	if _, err := f.svc.Assign(ctx, alice, task.ID, ""); KindOf(err) != KindInvalid {
		t.Fatalf("expected invalid for missing friend id, got %v", err)
	}
	// No friendship at all: a bad request, not a permission error.
	if _, err := f.svc.Assign(ctx, alice, task.ID, bob.ID); KindOf(err) != KindInvalid {
		t.Fatalf("expected invalid without friendship, got %v", err)
	}

	fr, err := f.friends.InsertFriendship(ctx, Friendship{RequesterID: alice.ID, RecipientID: bob.ID, Status: FriendshipPending})
	if err != nil {
		t.Fatalf("seed friendship: %v", err)
	}
	if _, err := f.svc.Assign(ctx, alice, task.ID, bob.ID); KindOf(err) != KindInvalid {
		t.Fatalf("expected invalid with pending friendship, got %v", err)
	}

	if _, err := f.friends.SetFriendshipStatus(ctx, fr.ID, FriendshipAccepted, f.now); err != nil {
		t.Fatalf("accept friendship: %v", err)
	}

	assigned, err := f.svc.Assign(ctx, alice, task.ID, bob.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.OwnerID != bob.ID {
		t.Fatalf("expected bob as owner, got %s", assigned.OwnerID)
	}
	if assigned.Status != StatusTodo {
		t.Fatalf("expected status reset to todo, got %s", assigned.Status)
	}
	if assigned.AssignedBy != alice.ID || assigned.AssignedByEmail != "alice@example.com" {
		t.Fatalf("unexpected assignment stamp: %+v", assigned)
	}
	if assigned.Title != task.Title || assigned.Priority != task.Priority {
		t.Fatalf("copy mismatch: %+v", assigned)
	}
	if assigned.Flagged {
		t.Fatalf("flag should not carry over to the copy")
	}
	if assigned.ID == task.ID {
		t.Fatalf("expected a new record")
	}

	// The source is untouched.
	source, err := f.svc.Get(ctx, alice.ID, task.ID)
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if source.Status != StatusActive || source.OwnerID != alice.ID {
		t.Fatalf("source mutated: %+v", source)
	}
}

func TestAssignUnknownTaskOrFriend(t *testing.T) {
	f := newTaskFixture(t)
	alice := f.users.add("Alice", "alice@example.com")
	bob := f.users.add("Bob", "bob@example.com")
	ctx := context.Background()

	task := f.seed(t, alice, TaskDraft{Title: "Chore"})
	bobsTask := f.seed(t, bob, TaskDraft{Title: "Bob's"})

	fr, _ := f.friends.InsertFriendship(ctx, Friendship{RequesterID: alice.ID, RecipientID: bob.ID, Status: FriendshipPending})
	if _, err := f.friends.SetFriendshipStatus(ctx, fr.ID, FriendshipAccepted, f.now); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// A task owned by the target is invisible to the actor.
	if _, err := f.svc.Assign(ctx, alice, bobsTask.ID, bob.ID); KindOf(err) != KindNotFound {
		t.Fatalf("expected not found for foreign task, got %v", err)
	}

	// Friendship record outliving the friend's account.
	delete(f.users.users, bob.ID)
	if _, err := f.svc.Assign(ctx, alice, task.ID, bob.ID); KindOf(err) != KindNotFound {
		t.Fatalf("expected not found for vanished friend, got %v", err)
	}
}

func TestSearchAllUnionsAndTags(t *testing.T) {
	f := newTaskFixture(t)
	alice := f.users.add("Alice", "alice@example.com")
	bob := f.users.add("Bob", "bob@example.com")
	ctx := context.Background()

	f.seed(t, alice, TaskDraft{Title: "Plan groceries"})
	f.seed(t, alice, TaskDraft{Title: "Unrelated"})

	fr, _ := f.friends.InsertFriendship(ctx, Friendship{RequesterID: bob.ID, RecipientID: alice.ID, Status: FriendshipPending})
	if _, err := f.friends.SetFriendshipStatus(ctx, fr.ID, FriendshipAccepted, f.now); err != nil {
		t.Fatalf("accept: %v", err)
	}
	bobsTask := f.seed(t, bob, TaskDraft{Title: "Groceries run"})
	if _, err := f.svc.Assign(ctx, bob, bobsTask.ID, alice.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	results, err := f.svc.SearchAll(ctx, alice.ID, "groceries")
	if err != nil {
		t.Fatalf("search all: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	byTitle := map[string]TaggedTask{}
	for _, r := range results {
		byTitle[r.Title] = r
	}
	// The assigned copy matches both legs of the union but is reported
	// once, tagged by its first occurrence in the owner's own tasks.
	if got := byTitle["Groceries run"]; got.IsAssigned {
		t.Fatalf("first occurrence should win the dedupe: %+v", got)
	}
	if _, ok := byTitle["Plan groceries"]; !ok {
		t.Fatalf("missing own match: %+v", results)
	}

	if _, err := f.svc.SearchAll(ctx, alice.ID, "   "); KindOf(err) != KindInvalid {
		t.Fatalf("expected invalid for empty term, got %v", err)
	}
}

func TestDashboardStats(t *testing.T) {
	f := newTaskFixture(t)
	alice := f.users.add("Alice", "alice@example.com")
	bob := f.users.add("Bob", "bob@example.com")
	ctx := context.Background()

	todayUTC, tomorrowUTC := UTCDayRange(f.now)
	yesterday := todayUTC.Add(-10 * time.Hour)
	later := todayUTC.Add(15 * time.Hour)
	future := tomorrowUTC.Add(30 * time.Hour)

	f.seed(t, alice, TaskDraft{Title: "Missed", DueDate: &yesterday})
	f.seed(t, alice, TaskDraft{Title: "Today", DueDate: &later, Flagged: true})
	f.seed(t, alice, TaskDraft{Title: "Future", DueDate: &future})
	f.seed(t, alice, TaskDraft{Title: "No due date"})
	f.seed(t, alice, TaskDraft{Title: "Done", DueDate: &yesterday, Status: StatusCompleted, Flagged: true})

	fr, _ := f.friends.InsertFriendship(ctx, Friendship{RequesterID: bob.ID, RecipientID: alice.ID, Status: FriendshipPending})
	if _, err := f.friends.SetFriendshipStatus(ctx, fr.ID, FriendshipAccepted, f.now); err != nil {
		t.Fatalf("accept: %v", err)
	}
	bobsTask := f.seed(t, bob, TaskDraft{Title: "Handoff"})
	if _, err := f.svc.Assign(ctx, bob, bobsTask.ID, alice.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	stats, err := f.svc.DashboardStats(ctx, alice.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	want := DashboardStats{All: 5, Today: 1, Scheduled: 1, Flagged: 2, Completed: 1, Friends: 1, Missed: 1}
	if stats != want {
		t.Fatalf("unexpected stats:\n got %+v\nwant %+v", stats, want)
	}
	// today + missed + scheduled can only undercount tasks without a due
	// date; never exceed the non-completed total.
	if stats.Today+stats.Missed+stats.Scheduled > stats.All {
		t.Fatalf("window counts exceed total: %+v", stats)
	}
}
