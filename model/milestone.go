package model

import (
	"time"
)

// Status is the derived tri-state of a milestone
type Status string

// Status constants
const (
	StatusDone    Status = "done"
	StatusOverdue Status = "overdue"
	StatusPending Status = "pending"
)

// DateLayout is the calendar-date layout used for deadlines
const DateLayout = "2006-01-02"

// Placeholder values for provenance fields the source did not supply
const (
	UnknownParty   = "Unknown"
	UnknownContext = "unknown"
)

// Party is one named participant of a contract
type Party struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Milestone represents a deadline extracted from a contract document
type Milestone struct {
	ID           string `json:"id"`
	DeadlineDate string `json:"deadline_date"`
	Name         string `json:"milestone_name"`
	DocumentRef  string `json:"document_ref"`
	Context      string `json:"context"`
	Status       Status `json:"status"`
	RawStatus    string `json:"raw_status,omitempty"`

	// Populated only for rows that came from the document API
	FileName           string  `json:"file_name,omitempty"`
	UploadTime         string  `json:"upload_time,omitempty"`
	Lender             string  `json:"lender,omitempty"`
	Borrower           string  `json:"borrower,omitempty"`
	ContractingParties []Party `json:"contracting_parties,omitempty"`
}

// Role of a chat participant
type Role string

// Role constants
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the session conversation
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Execution is an audit entry of a user-visible operation
type Execution struct {
	ID         string    `json:"id"`
	ExecutedAt time.Time `json:"executed_at"`
	Label      string    `json:"label"`
}

// ExportFile describes a generated CSV export
type ExportFile struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	CreatedAt   time.Time `json:"created_at"`
	RecordCount int       `json:"record_count"`
	ObjectKey   string    `json:"-"`
}

// Trigger mirrors a remote workflow descriptor
type Trigger struct {
	ID                  string    `json:"id"`
	Label               string    `json:"label"`
	CreatedAt           time.Time `json:"created_at"`
	Status              string    `json:"status"`
	LastExecutionStatus string    `json:"last_execution_status"`
}
