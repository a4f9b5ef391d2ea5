package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/reportdesk/internal/models"
	"github.com/reportdesk/internal/upstream"
)

type fakeFetcher struct {
	tickets []upstream.Ticket
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, requestID uint, apiURL string, payload upstream.Payload) ([]upstream.Ticket, error) {
	return f.tickets, f.err
}

type fakeSender struct {
	sent   []string
	failTo string
}

func (s *fakeSender) Send(to, subject, body, attachmentPath string) error {
	if to == s.failTo {
		return errors.New("smtp refused")
	}
	s.sent = append(s.sent, to)
	return nil
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) Send(message, severity string) error {
	n.messages = append(n.messages, message)
	return nil
}

func processorDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Company{},
		&models.CompanyUser{},
		&models.TicketRequest{},
		&models.RequestLog{},
		&models.EmailLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newRequest(t *testing.T, db *gorm.DB, company *models.Company) *models.TicketRequest {
	t.Helper()
	req := &models.TicketRequest{
		CompanyID: company.ID,
		DateStart: "2025-01-01",
		DateEnd:   "2025-01-31",
		Status:    models.RequestStatusProcessing,
	}
	if err := db.Create(req).Error; err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

func TestProcessorUpstreamFailure(t *testing.T) {
	db := processorDB(t)
	company := &models.Company{Name: "Acme", APIKey: "k", APIURL: "http://example.invalid", IsActive: true}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	req := newRequest(t, db, company)

	fetcher := &fakeFetcher{err: &upstream.UpstreamError{StatusCode: 502}}
	p := NewProcessor(db, fetcher, nil, t.TempDir())
	p.Run(context.Background(), req.ID, company, req.DateStart, req.DateEnd, "")

	var got models.TicketRequest
	if err := db.First(&got, req.ID).Error; err != nil {
		t.Fatalf("load request: %v", err)
	}
	if got.Status != models.RequestStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Fatal("error message not recorded")
	}
	if got.FilePath != "" || got.FileName != "" {
		t.Fatalf("no file should be recorded, got %q", got.FilePath)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
}

func TestProcessorBadDateFails(t *testing.T) {
	db := processorDB(t)
	company := &models.Company{Name: "Acme", APIKey: "k", APIURL: "http://example.invalid", IsActive: true}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	req := newRequest(t, db, company)

	p := NewProcessor(db, &fakeFetcher{}, nil, t.TempDir())
	p.Run(context.Background(), req.ID, company, "garbage", "", "")

	var got models.TicketRequest
	if err := db.First(&got, req.ID).Error; err != nil {
		t.Fatalf("load request: %v", err)
	}
	if got.Status != models.RequestStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
}

func TestProcessorZeroTickets(t *testing.T) {
	db := processorDB(t)
	company := &models.Company{Name: "Acme", APIKey: "k", APIURL: "http://example.invalid", IsActive: true}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	req := newRequest(t, db, company)

	sender := &fakeSender{}
	p := NewProcessor(db, &fakeFetcher{}, NewDispatcher(db, sender, nil), t.TempDir())
	p.Run(context.Background(), req.ID, company, req.DateStart, req.DateEnd, "a@x.com")

	var got models.TicketRequest
	if err := db.First(&got, req.ID).Error; err != nil {
		t.Fatalf("load request: %v", err)
	}
	if got.Status != models.RequestStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.TotalTickets != 0 || got.FileName != "" {
		t.Fatalf("unexpected result fields: %+v", got)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("no email expected for an empty report, sent %v", sender.sent)
	}
}

func TestProcessorDeliversReport(t *testing.T) {
	db := processorDB(t)
	company := &models.Company{Name: "Acme Corp!", APIKey: "k", APIURL: "http://example.invalid", IsActive: true}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	req := newRequest(t, db, company)

	fetcher := &fakeFetcher{tickets: []upstream.Ticket{
		{"ticket_id": upstream.StringValue("T-1"), "created_date": upstream.NumberValue(1700000000)},
		{"ticket_id": upstream.StringValue("T-2"), "created_date": upstream.NumberValue(1700050000)},
	}}
	sender := &fakeSender{failTo: "b@x.com"}
	notifier := &fakeNotifier{}
	outputDir := t.TempDir()
	p := NewProcessor(db, fetcher, NewDispatcher(db, sender, notifier), outputDir)

	p.Run(context.Background(), req.ID, company, req.DateStart, req.DateEnd, "a@x.com,b@x.com")

	var got models.TicketRequest
	if err := db.First(&got, req.ID).Error; err != nil {
		t.Fatalf("load request: %v", err)
	}
	if got.Status != models.RequestStatusCompleted {
		t.Fatalf("status = %s (%s), want completed", got.Status, got.ErrorMessage)
	}
	if got.TotalTickets != 2 {
		t.Fatalf("total tickets = %d", got.TotalTickets)
	}
	if got.FileName != "Acme_Corp_2025-01-01_to_2025-01-31.csv" {
		t.Fatalf("file name = %q", got.FileName)
	}
	if _, err := os.Stat(got.FilePath); err != nil {
		t.Fatalf("report file missing: %v", err)
	}

	// one delivery attempt per recipient, failures do not abort the rest
	var emailLogs []models.EmailLog
	if err := db.Order("recipient_email").Find(&emailLogs).Error; err != nil {
		t.Fatalf("load email logs: %v", err)
	}
	if len(emailLogs) != 2 {
		t.Fatalf("expected 2 email logs, got %d", len(emailLogs))
	}
	if emailLogs[0].RecipientEmail != "a@x.com" || emailLogs[0].Status != models.EmailStatusSent {
		t.Fatalf("log a = %+v", emailLogs[0])
	}
	if emailLogs[1].RecipientEmail != "b@x.com" || emailLogs[1].Status != models.EmailStatusFailed {
		t.Fatalf("log b = %+v", emailLogs[1])
	}
	if emailLogs[1].ErrorMessage == "" {
		t.Fatal("failed delivery should record the error")
	}
	if len(sender.sent) != 1 || sender.sent[0] != "a@x.com" {
		t.Fatalf("sent = %v", sender.sent)
	}

	if len(notifier.messages) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.messages))
	}
}

func TestProcessorTerminalRequestsAreImmutable(t *testing.T) {
	db := processorDB(t)
	company := &models.Company{Name: "Acme", APIKey: "k", APIURL: "http://example.invalid", IsActive: true}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}

	req := &models.TicketRequest{
		CompanyID: company.ID,
		DateStart: "2025-01-01",
		Status:    models.RequestStatusCompleted,
	}
	if err := db.Create(req).Error; err != nil {
		t.Fatalf("create request: %v", err)
	}

	p := NewProcessor(db, &fakeFetcher{err: errors.New("late failure")}, nil, t.TempDir())
	p.Run(context.Background(), req.ID, company, req.DateStart, "", "")

	var got models.TicketRequest
	if err := db.First(&got, req.ID).Error; err != nil {
		t.Fatalf("load request: %v", err)
	}
	if got.Status != models.RequestStatusCompleted || got.ErrorMessage != "" {
		t.Fatalf("terminal request mutated: %+v", got)
	}
}
