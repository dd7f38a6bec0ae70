package domain

import "testing"

func TestSyncStatusLifecycle(t *testing.T) {
	status := NewSyncStatus()
	if status.Status != SyncPending {
		t.Fatalf("expected pending, got %s", status.Status)
	}
	status.Start()
	if status.Status != SyncInProgress {
		t.Fatalf("expected in_progress, got %s", status.Status)
	}
	status.MarkCompleted()
	if status.Status != SyncCompleted || status.CompletedAt == nil {
		t.Fatalf("expected completed with timestamp, got %+v", status)
	}
}

func TestSyncStatusAddErrorIsIdempotentOnState(t *testing.T) {
	status := NewSyncStatus()
	status.Start()
	status.AddError("first")
	status.AddError("second")

	if status.Status != SyncFailed {
		t.Fatalf("expected failed, got %s", status.Status)
	}
	if len(status.Errors) != 2 || status.Errors[0] != "first" || status.Errors[1] != "second" {
		t.Fatalf("expected both errors in call order, got %v", status.Errors)
	}
	if !status.Failed() {
		t.Fatal("expected Failed to report true")
	}
}

func TestMenuDiffHasChanges(t *testing.T) {
	if (MenuDiff{}).HasChanges() {
		t.Fatal("expected empty diff to have no changes")
	}
	cases := []MenuDiff{
		{AddedItems: []MenuItem{{ID: "1"}}},
		{UpdatedItems: []MenuItem{{ID: "1"}}},
		{DeletedItems: []string{"1"}},
		{AddedCategories: []MenuCategory{{ID: "c"}}},
		{UpdatedCategories: []MenuCategory{{ID: "c"}}},
		{DeletedCategories: []string{"c"}},
	}
	for i, diff := range cases {
		if !diff.HasChanges() {
			t.Fatalf("case %d: expected changes", i)
		}
	}
}
