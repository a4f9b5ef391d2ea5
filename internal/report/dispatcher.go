package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/reportdesk/internal/models"
	"github.com/reportdesk/internal/notify"
)

// EmailSender delivers one message with the report attached.
type EmailSender interface {
	Send(to, subject, body, attachmentPath string) error
}

// Notifier posts a summary to the side channel. Delivery is best effort.
type Notifier interface {
	Send(message, severity string) error
}

// Summary describes one finished pipeline run for delivery.
type Summary struct {
	Company      string
	DateStart    string
	DateEnd      string
	TicketCount  int
	DurationSecs int
	Recipients   []string
}

// Dispatcher emails the generated report to each recipient independently and
// posts a summary notification. One failed recipient never blocks the rest,
// and notification failures never reach the caller.
type Dispatcher struct {
	db       *gorm.DB
	mail     EmailSender
	notifier Notifier
}

func NewDispatcher(db *gorm.DB, mail EmailSender, notifier Notifier) *Dispatcher {
	return &Dispatcher{db: db, mail: mail, notifier: notifier}
}

// SplitRecipients splits a comma-joined address list, trimming whitespace and
// dropping blanks.
func SplitRecipients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Deliver sends the report file to every recipient, logging each attempt as
// an EmailLog row.
func (d *Dispatcher) Deliver(requestID uint, recipients []string, filePath string, sum Summary) {
	subject := fmt.Sprintf("Tickets Report - %s", sum.Company)
	body := d.body(sum)

	for _, to := range recipients {
		attempt := models.EmailLog{
			TicketRequestID: requestID,
			RecipientEmail:  to,
			Subject:         subject,
			Status:          models.EmailStatusSending,
		}
		if err := d.db.Create(&attempt).Error; err != nil {
			logrus.WithError(err).WithField("recipient", to).Error("failed to record email attempt")
			continue
		}

		if err := d.mail.Send(to, subject, body, filePath); err != nil {
			attempt.Status = models.EmailStatusFailed
			attempt.ErrorMessage = err.Error()
			logrus.WithError(err).WithFields(logrus.Fields{
				"request_id": requestID,
				"recipient":  to,
			}).Error("email delivery failed")
		} else {
			attempt.Status = models.EmailStatusSent
			logrus.WithFields(logrus.Fields{
				"request_id": requestID,
				"recipient":  to,
			}).Info("email sent")
		}
		if err := d.db.Save(&attempt).Error; err != nil {
			logrus.WithError(err).WithField("recipient", to).Error("failed to update email log")
		}
	}
}

// Notify posts the run summary to the notification channel. Failures are
// logged and discarded.
func (d *Dispatcher) Notify(sum Summary) {
	if d.notifier == nil {
		return
	}

	end := sum.DateEnd
	if end == "" {
		end = "present"
	}
	msg := fmt.Sprintf("Report ready for %s\nRange: %s to %s\nTickets: %d\nTime: %ds\nRecipients: %s",
		sum.Company, sum.DateStart, end, sum.TicketCount, sum.DurationSecs,
		strings.Join(sum.Recipients, ", "))

	if err := d.notifier.Send(msg, notify.SeverityInfo); err != nil {
		logrus.WithError(err).WithField("company", sum.Company).
			Warn("summary notification failed")
	}
}

func (d *Dispatcher) body(sum Summary) string {
	end := sum.DateEnd
	if end == "" {
		end = "present"
	}
	return fmt.Sprintf("Report for %s\n\nRange: %s to %s\nTickets: %d\nTime: %ds\nGenerated: %s\n",
		sum.Company, sum.DateStart, end, sum.TicketCount, sum.DurationSecs,
		time.Now().UTC().Format("2006-01-02 15:04:05"))
}
