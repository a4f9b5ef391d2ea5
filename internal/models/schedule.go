package models

import (
	"time"

	"gorm.io/gorm"
)

type ReportType string

const (
	ReportTypeDaily   ReportType = "daily"
	ReportTypeWeekly  ReportType = "weekly"
	ReportTypeMonthly ReportType = "monthly"
	ReportTypeCustom  ReportType = "custom"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeDaily, ReportTypeWeekly, ReportTypeMonthly, ReportTypeCustom:
		return true
	}
	return false
}

// ReportSchedule is a recurring trigger definition scoped to one company.
// CronExpression, when set, must tokenize into exactly 5 fields
// (minute hour day month weekday).
type ReportSchedule struct {
	gorm.Model
	CompanyID      uint       `gorm:"not null;index" json:"company_id"`
	Name           string     `gorm:"not null" json:"name"`
	Description    string     `gorm:"type:text" json:"description"`
	ReportType     ReportType `gorm:"size:50;default:monthly" json:"report_type"`
	CronExpression string     `gorm:"size:100" json:"cron_expression"`
	DateStart      string     `gorm:"size:20" json:"date_start"` // custom reports only
	DateEnd        string     `gorm:"size:20" json:"date_end"`   // custom reports only
	Recipients     string     `gorm:"type:text" json:"recipients"`
	IsActive       bool       `gorm:"index" json:"is_active"`
	LastRun        *time.Time `json:"last_run"`
	RunCount       int        `gorm:"default:0" json:"run_count"`

	Company *Company `json:"company,omitempty"`
}
