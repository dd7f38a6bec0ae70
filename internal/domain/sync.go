package domain

import "time"

// SyncState is the lifecycle state of a single sync run.
type SyncState string

const (
	SyncPending    SyncState = "pending"
	SyncInProgress SyncState = "in_progress"
	SyncCompleted  SyncState = "completed"
	SyncFailed     SyncState = "failed"
)

// ResultStatus is the coarse outcome reported to callers.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

// SyncStatus tracks the progress and counters of one run.
type SyncStatus struct {
	Status         SyncState  `json:"status" yaml:"status"`
	StartedAt      time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	ItemsProcessed int        `json:"items_processed" yaml:"items_processed"`
	ItemsCreated   int        `json:"items_created" yaml:"items_created"`
	ItemsUpdated   int        `json:"items_updated" yaml:"items_updated"`
	ItemsDeleted   int        `json:"items_deleted" yaml:"items_deleted"`
	Errors         []string   `json:"errors" yaml:"errors"`
}

// NewSyncStatus returns a pending status stamped with the current time.
func NewSyncStatus() *SyncStatus {
	return &SyncStatus{
		Status:    SyncPending,
		StartedAt: time.Now().UTC(),
		Errors:    []string{},
	}
}

// Start moves a pending status into progress.
func (s *SyncStatus) Start() {
	if s.Status == SyncPending {
		s.Status = SyncInProgress
	}
}

// MarkCompleted sets the terminal completed state.
func (s *SyncStatus) MarkCompleted() {
	now := time.Now().UTC()
	s.Status = SyncCompleted
	s.CompletedAt = &now
}

// AddError records a failure; every call forces the failed state.
func (s *SyncStatus) AddError(message string) {
	s.Errors = append(s.Errors, message)
	s.Status = SyncFailed
}

// Failed reports whether at least one error was recorded.
func (s *SyncStatus) Failed() bool {
	return s.Status == SyncFailed
}

// SyncResult is returned by every sync invocation.
type SyncResult struct {
	RunID        string       `json:"run_id" yaml:"run_id"`
	Profile      string       `json:"profile" yaml:"profile"`
	RestaurantID string       `json:"restaurant_id,omitempty" yaml:"restaurant_id,omitempty"`
	DryRun       bool         `json:"dry_run" yaml:"dry_run"`
	Status       ResultStatus `json:"status" yaml:"status"`
	Menu         *Menu        `json:"data,omitempty" yaml:"data,omitempty"`
	SyncStatus   *SyncStatus  `json:"sync_status,omitempty" yaml:"sync_status,omitempty"`
	Error        string       `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp    time.Time    `json:"timestamp" yaml:"timestamp"`
}

// Succeeded reports whether the run finished with a success status.
func (r SyncResult) Succeeded() bool {
	return r.Status == ResultSuccess
}

// MenuDiff is the change set between two menu snapshots.
type MenuDiff struct {
	AddedItems        []MenuItem     `json:"added_items" yaml:"added_items"`
	UpdatedItems      []MenuItem     `json:"updated_items" yaml:"updated_items"`
	DeletedItems      []string       `json:"deleted_items" yaml:"deleted_items"`
	AddedCategories   []MenuCategory `json:"added_categories" yaml:"added_categories"`
	UpdatedCategories []MenuCategory `json:"updated_categories" yaml:"updated_categories"`
	DeletedCategories []string       `json:"deleted_categories" yaml:"deleted_categories"`
}

// HasChanges reports whether any of the change collections is non-empty.
func (d MenuDiff) HasChanges() bool {
	return len(d.AddedItems) > 0 ||
		len(d.UpdatedItems) > 0 ||
		len(d.DeletedItems) > 0 ||
		len(d.AddedCategories) > 0 ||
		len(d.UpdatedCategories) > 0 ||
		len(d.DeletedCategories) > 0
}
