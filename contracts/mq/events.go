package mq

import "time"

// Routing keys published on the events exchange.
const (
	RoutingUserRegistered = "user.registered"
	RoutingProjectCreated = "project.created"
	RoutingProjectUpdated = "project.updated"
	RoutingProjectDeleted = "project.deleted"
	RoutingTaskCreated    = "task.created"
	RoutingTaskUpdated    = "task.updated"
	RoutingTaskDeleted    = "task.deleted"
)

// Aggregate types recorded on outbox rows.
const (
	AggregateUser    = "user"
	AggregateProject = "project"
	AggregateTask    = "task"
)

type UserRegisteredPayload struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
	TraceID    string    `json:"trace_id,omitempty"`
}

type ProjectPayload struct {
	ProjectID  int64     `json:"project_id"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	TraceID    string    `json:"trace_id,omitempty"`
}

type TaskPayload struct {
	TaskID     int64      `json:"task_id"`
	UserID     int64      `json:"user_id"`
	ProjectID  *int64     `json:"project_id,omitempty"`
	Title      string     `json:"title,omitempty"`
	Status     string     `json:"status,omitempty"`
	Priority   string     `json:"priority,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
	TraceID    string     `json:"trace_id,omitempty"`
}
