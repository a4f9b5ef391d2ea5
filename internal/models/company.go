package models

import (
	"gorm.io/gorm"
)

// Company is the tenant root. Companies are deactivated, never hard-deleted,
// so request history stays intact.
type Company struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	APIKey      string `gorm:"size:500;not null" json:"-"`
	APIURL      string `gorm:"size:500;not null" json:"api_url"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `gorm:"index" json:"is_active"`

	Users     []CompanyUser    `gorm:"constraint:OnDelete:CASCADE" json:"users,omitempty"`
	Schedules []ReportSchedule `gorm:"constraint:OnDelete:CASCADE" json:"schedules,omitempty"`
	Requests  []TicketRequest  `json:"-"`
}

// SubscribedEmails returns the addresses of active users who opted into
// report delivery.
func (c *Company) SubscribedEmails() []string {
	var emails []string
	for _, u := range c.Users {
		if u.IsActive && u.ReceiveReports {
			emails = append(emails, u.Email)
		}
	}
	return emails
}

// CompanyUser is a report recipient scoped to one company.
type CompanyUser struct {
	gorm.Model
	CompanyID      uint   `gorm:"not null;uniqueIndex:idx_company_user_email" json:"company_id"`
	Email          string `gorm:"not null;uniqueIndex:idx_company_user_email" json:"email"`
	Name           string `json:"name"`
	Role           string `gorm:"size:100" json:"role"`
	ReceiveReports bool   `json:"receive_reports"`
	IsActive       bool   `gorm:"index" json:"is_active"`
}
