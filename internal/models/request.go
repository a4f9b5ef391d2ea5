package models

import (
	"time"

	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusProcessing RequestStatus = "processing"
	RequestStatusScheduled  RequestStatus = "scheduled"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusFailed     RequestStatus = "failed"
)

// Terminal reports whether a request has reached a final state. Terminal
// requests are never mutated again.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusFailed
}

// TicketRequest is one execution of the fetch -> tabulate -> deliver pipeline.
type TicketRequest struct {
	gorm.Model
	CompanyID             uint          `gorm:"not null;index" json:"company_id"`
	DateStart             string        `gorm:"size:20;not null" json:"date_start"`
	DateEnd               string        `gorm:"size:20" json:"date_end"`
	EmailTo               string        `gorm:"type:text" json:"email_to"`
	Status                RequestStatus `gorm:"size:50;default:pending;index" json:"status"`
	FilePath              string        `gorm:"size:500" json:"file_path"`
	FileName              string        `json:"file_name"`
	TotalTickets          int           `gorm:"default:0" json:"total_tickets"`
	ErrorMessage          string        `gorm:"type:text" json:"error_message"`
	ProcessingTimeSeconds int           `json:"processing_time_seconds"`
	CompletedAt           *time.Time    `json:"completed_at"`

	Company     *Company     `json:"company,omitempty"`
	RequestLogs []RequestLog `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	EmailLogs   []EmailLog   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// RequestLog records one upstream API call for a request. Rows are appended
// before the call and completed right after it, never rewritten later.
type RequestLog struct {
	gorm.Model
	TicketRequestID    uint   `gorm:"not null;index" json:"ticket_request_id"`
	APIURL             string `gorm:"size:500;not null" json:"api_url"`
	RequestPayload     string `gorm:"type:text" json:"request_payload"`
	ResponseStatusCode int    `gorm:"index" json:"response_status_code"`
	ResponseData       string `gorm:"type:text" json:"response_data"`
	RequestDurationMS  int    `json:"request_duration_ms"`
}

type EmailStatus string

const (
	EmailStatusSending EmailStatus = "sending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// EmailLog records one delivery attempt per recipient.
type EmailLog struct {
	gorm.Model
	TicketRequestID uint        `gorm:"not null;index" json:"ticket_request_id"`
	RecipientEmail  string      `gorm:"not null;index" json:"recipient_email"`
	Subject         string      `gorm:"size:500" json:"subject"`
	Status          EmailStatus `gorm:"size:50;default:sending;index" json:"status"`
	ErrorMessage    string      `gorm:"type:text" json:"error_message"`
}
