package project

import "time"

// Status is the lifecycle state of a project.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Project is a manufacturing project that owns exactly one checklist.
type Project struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	ProjectType string     `json:"project_type"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

// ProjectSummary is a lightweight representation for listing
type ProjectSummary struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ProjectType      string    `json:"project_type"`
	Status           Status    `json:"status"`
	TemplateVersion  int       `json:"template_version,omitempty"`
	ChecklistVersion int64     `json:"checklist_version,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
