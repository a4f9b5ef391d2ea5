package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/reportdesk/internal/models"
)

type recordingRunner struct {
	requestIDs []uint
	emailTo    string
}

func (r *recordingRunner) Run(ctx context.Context, requestID uint, company *models.Company, dateStart, dateEnd, emailTo string) {
	r.requestIDs = append(r.requestIDs, requestID)
	r.emailTo = emailTo
}

func engineDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Company{},
		&models.CompanyUser{},
		&models.ReportSchedule{},
		&models.TicketRequest{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCompany(t *testing.T, db *gorm.DB) *models.Company {
	t.Helper()
	company := &models.Company{
		Name: "Acme", APIKey: "k", APIURL: "http://tickets.example.com", IsActive: true,
		Users: []models.CompanyUser{
			{Email: "a@x.com", ReceiveReports: true, IsActive: true},
			{Email: "b@x.com", ReceiveReports: false, IsActive: true},
			{Email: "c@x.com", ReceiveReports: true, IsActive: false},
		},
	}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	return company
}

func TestFireCreatesScheduledRequest(t *testing.T) {
	db := engineDB(t)
	company := seedCompany(t, db)

	schedule := models.ReportSchedule{
		CompanyID:  company.ID,
		Name:       "Monthly",
		ReportType: models.ReportTypeMonthly,
		IsActive:   true,
	}
	if err := db.Create(&schedule).Error; err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	runner := &recordingRunner{}
	engine := NewEngine(db, runner)
	engine.Fire(schedule.ID)

	var req models.TicketRequest
	if err := db.First(&req).Error; err != nil {
		t.Fatalf("load request: %v", err)
	}
	if req.Status != models.RequestStatusScheduled {
		t.Fatalf("status = %s", req.Status)
	}
	if !strings.HasSuffix(req.DateEnd, "23:59:59") {
		t.Fatalf("end not widened to end of day: %q", req.DateEnd)
	}
	if len(req.DateStart) != len("2006-01-02") {
		t.Fatalf("start = %q", req.DateStart)
	}

	// recipients fall back to subscribed active users only
	if runner.emailTo != "a@x.com" {
		t.Fatalf("emailTo = %q", runner.emailTo)
	}
	if len(runner.requestIDs) != 1 || runner.requestIDs[0] != req.ID {
		t.Fatalf("runner saw %v", runner.requestIDs)
	}

	var got models.ReportSchedule
	if err := db.First(&got, schedule.ID).Error; err != nil {
		t.Fatalf("load schedule: %v", err)
	}
	if got.RunCount != 1 || got.LastRun == nil {
		t.Fatalf("run stats not updated: count=%d lastRun=%v", got.RunCount, got.LastRun)
	}
}

func TestFireRecipientOverride(t *testing.T) {
	db := engineDB(t)
	company := seedCompany(t, db)

	schedule := models.ReportSchedule{
		CompanyID:  company.ID,
		Name:       "Daily",
		ReportType: models.ReportTypeDaily,
		Recipients: "ops@x.com",
		IsActive:   true,
	}
	if err := db.Create(&schedule).Error; err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	runner := &recordingRunner{}
	NewEngine(db, runner).Fire(schedule.ID)
	if runner.emailTo != "ops@x.com" {
		t.Fatalf("emailTo = %q", runner.emailTo)
	}
}

func TestFireInactiveScheduleIsNoOp(t *testing.T) {
	db := engineDB(t)
	company := seedCompany(t, db)

	schedule := models.ReportSchedule{
		CompanyID:  company.ID,
		Name:       "Off",
		ReportType: models.ReportTypeDaily,
		IsActive:   false,
	}
	if err := db.Create(&schedule).Error; err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	runner := &recordingRunner{}
	engine := NewEngine(db, runner)
	engine.Fire(schedule.ID)
	engine.Fire(99) // missing id

	var count int64
	if err := db.Model(&models.TicketRequest{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 || len(runner.requestIDs) != 0 {
		t.Fatalf("inactive schedule fired: %d requests", count)
	}
}

func TestUpsertAndRemove(t *testing.T) {
	db := engineDB(t)
	company := seedCompany(t, db)

	schedule := &models.ReportSchedule{
		CompanyID:      company.ID,
		Name:           "Weekly",
		ReportType:     models.ReportTypeWeekly,
		CronExpression: "0 8 * * 1",
		IsActive:       true,
	}
	if err := db.Create(schedule).Error; err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	engine := NewEngine(db, &recordingRunner{})
	if err := engine.Upsert(schedule); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, ok := engine.entries[schedule.ID]; !ok {
		t.Fatal("trigger not registered")
	}

	// re-upserting replaces the entry rather than stacking a second one
	if err := engine.Upsert(schedule); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if len(engine.entries) != 1 {
		t.Fatalf("entries = %d", len(engine.entries))
	}

	schedule.IsActive = false
	if err := engine.Upsert(schedule); err != nil {
		t.Fatalf("deactivate upsert: %v", err)
	}
	if len(engine.entries) != 0 {
		t.Fatal("trigger not removed on deactivate")
	}

	schedule.IsActive = true
	schedule.CronExpression = "bad"
	if err := engine.Upsert(schedule); err == nil {
		t.Fatal("bad cron accepted")
	}
}
