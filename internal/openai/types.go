// OpenAI Files & Batches API object types
//
// Shapes follow https://platform.openai.com/docs/api-reference/batch
package openai

import "time"

// BatchStatus is the lifecycle state of a remote batch job.
type BatchStatus string

const (
	StatusValidating BatchStatus = "validating"
	StatusFailed     BatchStatus = "failed"
	StatusInProgress BatchStatus = "in_progress"
	StatusFinalizing BatchStatus = "finalizing"
	StatusCompleted  BatchStatus = "completed"
	StatusExpired    BatchStatus = "expired"
	StatusCancelling BatchStatus = "cancelling"
	StatusCancelled  BatchStatus = "cancelled"
)

// Terminal reports whether the batch has reached a state the remote service
// will never leave.
func (s BatchStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Succeeded reports whether the batch finished with results available.
func (s BatchStatus) Succeeded() bool {
	return s == StatusCompleted
}

// File represents an uploaded file object.
type File struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
}

// BatchRequest represents a request to create a batch.
type BatchRequest struct {
	InputFileID      string `json:"input_file_id"`
	Endpoint         string `json:"endpoint"`
	CompletionWindow string `json:"completion_window"`
}

// RequestCounts holds per-batch request tallies.
type RequestCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// BatchError represents a single entry in a batch's error report.
type BatchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	Line    *int   `json:"line,omitempty"`
}

// BatchErrors holds batch error details.
type BatchErrors struct {
	Object string       `json:"object"`
	Data   []BatchError `json:"data"`
}

// Batch represents a remote batch job.
type Batch struct {
	ID               string         `json:"id"`
	Object           string         `json:"object"`
	Endpoint         string         `json:"endpoint"`
	Errors           *BatchErrors   `json:"errors,omitempty"`
	InputFileID      string         `json:"input_file_id"`
	CompletionWindow string         `json:"completion_window"`
	Status           BatchStatus    `json:"status"`
	OutputFileID     string         `json:"output_file_id,omitempty"`
	ErrorFileID      string         `json:"error_file_id,omitempty"`
	CreatedAt        int64          `json:"created_at"`
	InProgressAt     int64          `json:"in_progress_at,omitempty"`
	ExpiresAt        int64          `json:"expires_at,omitempty"`
	FinalizingAt     int64          `json:"finalizing_at,omitempty"`
	CompletedAt      int64          `json:"completed_at,omitempty"`
	FailedAt         int64          `json:"failed_at,omitempty"`
	ExpiredAt        int64          `json:"expired_at,omitempty"`
	CancellingAt     int64          `json:"cancelling_at,omitempty"`
	CancelledAt      int64          `json:"cancelled_at,omitempty"`
	RequestCounts    *RequestCounts `json:"request_counts,omitempty"`
}

// Created returns the creation time, or the zero [time.Time] if unset.
func (b *Batch) Created() time.Time {
	if b.CreatedAt == 0 {
		return time.Time{}
	}
	return time.Unix(b.CreatedAt, 0)
}

// Completed returns the completion time, or the zero [time.Time] if unset.
func (b *Batch) Completed() time.Time {
	if b.CompletedAt == 0 {
		return time.Time{}
	}
	return time.Unix(b.CompletedAt, 0)
}

// BatchList represents a page of batch jobs.
type BatchList struct {
	Object  string  `json:"object"`
	Data    []Batch `json:"data"`
	FirstID string  `json:"first_id,omitempty"`
	LastID  string  `json:"last_id,omitempty"`
	HasMore bool    `json:"has_more"`
}
