package domain

import "time"

// ExtensionStatus represents the review state of an extension request.
type ExtensionStatus string

const (
	ExtensionStatusPending  ExtensionStatus = "PENDING"
	ExtensionStatusApproved ExtensionStatus = "APPROVED"
	ExtensionStatusRejected ExtensionStatus = "REJECTED"
)

// TaskExtension is a worker-initiated request to move an overdue task's due
// date. Exactly one extension can exist per task, and it is owned by the
// task: deleting the task removes it. On approval the task's due date is
// overwritten with the requested date while the extension row persists as a
// historical record.
type TaskExtension struct {
	ID               int64           `json:"id"`
	TaskID           int64           `json:"task_id"`
	RequestedDueDate time.Time       `json:"requested_due_date"`
	Reason           string          `json:"reason"`
	RejectReason     string          `json:"reject_reason,omitempty"`
	Status           ExtensionStatus `json:"status"`
}
