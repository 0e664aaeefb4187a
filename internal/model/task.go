package model

import "time"

const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// TaskStatuses lists the accepted values of Task.Status. There is no
// transition order between them.
var TaskStatuses = []string{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}

var TaskPriorities = []string{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh}

type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	ProjectID   *int64     `json:"project_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t *Task) OwnerID() int64 { return t.UserID }

// TaskFilter narrows a task listing. Empty fields do not filter.
type TaskFilter struct {
	Status   string
	Priority string
}
