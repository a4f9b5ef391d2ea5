package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/reportdesk/internal/models"
)

// InvalidCronExpressionError reports a cron string that does not tokenize
// into the required 5 fields.
type InvalidCronExpressionError struct {
	Expression string
}

func (e *InvalidCronExpressionError) Error() string {
	return fmt.Sprintf("invalid cron expression %q: use minute hour day month weekday", e.Expression)
}

// ValidateCron checks the 5-field shape before a schedule is accepted.
func ValidateCron(expr string) error {
	if len(strings.Fields(expr)) != 5 {
		return &InvalidCronExpressionError{Expression: expr}
	}
	return nil
}

// Runner executes the report pipeline for one created request.
type Runner interface {
	Run(ctx context.Context, requestID uint, company *models.Company, dateStart, dateEnd, emailTo string)
}

// Engine owns the cron trigger registry for active report schedules. All
// registry mutation goes through Load/Upsert/Remove; there is no ambient
// shared scheduler state.
type Engine struct {
	cron   *cron.Cron
	db     *gorm.DB
	runner Runner

	mu      sync.Mutex
	entries map[uint]cron.EntryID
}

func NewEngine(db *gorm.DB, runner Runner) *Engine {
	return &Engine{
		cron:    cron.New(),
		db:      db,
		runner:  runner,
		entries: make(map[uint]cron.EntryID),
	}
}

func (e *Engine) Start() {
	e.cron.Start()
	logrus.Info("schedule engine started")
}

// Stop halts the trigger clock and waits for in-flight fires to finish.
func (e *Engine) Stop() {
	ctx := e.cron.Stop()
	<-ctx.Done()
	logrus.Info("schedule engine stopped")
}

// LoadAll (re)registers every active schedule. A schedule with a bad cron
// expression is skipped with a logged error and does not block the rest.
func (e *Engine) LoadAll() error {
	var schedules []models.ReportSchedule
	if err := e.db.Preload("Company").Where("is_active = ?", true).Find(&schedules).Error; err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}

	for i := range schedules {
		s := &schedules[i]
		if s.CronExpression == "" {
			continue
		}
		if err := e.register(s); err != nil {
			logrus.WithError(err).WithField("schedule_id", s.ID).
				Error("failed to load schedule")
		}
	}
	return nil
}

// Upsert registers or replaces the trigger for an active schedule with a
// cron expression, and removes any existing trigger otherwise.
func (e *Engine) Upsert(s *models.ReportSchedule) error {
	if s.IsActive && s.CronExpression != "" {
		return e.register(s)
	}
	e.Remove(s.ID)
	return nil
}

// Remove drops the trigger for a schedule id, if one is registered.
func (e *Engine) Remove(id uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if entryID, ok := e.entries[id]; ok {
		e.cron.Remove(entryID)
		delete(e.entries, id)
		logrus.WithField("schedule_id", id).Info("schedule trigger removed")
	}
}

func (e *Engine) register(s *models.ReportSchedule) error {
	if err := ValidateCron(s.CronExpression); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if entryID, ok := e.entries[s.ID]; ok {
		e.cron.Remove(entryID)
	}

	scheduleID := s.ID
	entryID, err := e.cron.AddFunc(s.CronExpression, func() {
		e.Fire(scheduleID)
	})
	if err != nil {
		return fmt.Errorf("register schedule_%d: %w", s.ID, err)
	}
	e.entries[s.ID] = entryID

	logrus.WithFields(logrus.Fields{
		"schedule_id": s.ID,
		"cron":        s.CronExpression,
		"report_type": s.ReportType,
	}).Info("schedule trigger registered")
	return nil
}

// Fire resolves the date range for the schedule's report type, creates a
// scheduled request, and runs the pipeline. A missing or inactive schedule
// is a silent no-op.
func (e *Engine) Fire(scheduleID uint) {
	var s models.ReportSchedule
	err := e.db.Preload("Company").Preload("Company.Users").First(&s, scheduleID).Error
	if err != nil || !s.IsActive {
		logrus.WithField("schedule_id", scheduleID).Debug("fire skipped, schedule missing or inactive")
		return
	}

	start, end := ResolveRange(&s, time.Now().UTC())
	dateStart := start.Format("2006-01-02")
	dateEnd := end.Format("2006-01-02 23:59:59") // include the whole final day

	recipients := s.Recipients
	if recipients == "" && s.Company != nil {
		recipients = strings.Join(s.Company.SubscribedEmails(), ",")
	}

	req := models.TicketRequest{
		CompanyID: s.CompanyID,
		DateStart: dateStart,
		DateEnd:   dateEnd,
		EmailTo:   recipients,
		Status:    models.RequestStatusScheduled,
	}
	if err := e.db.Create(&req).Error; err != nil {
		logrus.WithError(err).WithField("schedule_id", scheduleID).
			Error("failed to create scheduled request")
		return
	}

	now := time.Now().UTC()
	if err := e.db.Model(&s).Updates(map[string]interface{}{
		"last_run":  now,
		"run_count": gorm.Expr("run_count + ?", 1),
	}).Error; err != nil {
		logrus.WithError(err).WithField("schedule_id", scheduleID).
			Error("failed to update schedule run stats")
	}

	logrus.WithFields(logrus.Fields{
		"schedule_id": scheduleID,
		"request_id":  req.ID,
		"date_start":  dateStart,
		"date_end":    dateEnd,
	}).Info("running scheduled report")

	e.runner.Run(context.Background(), req.ID, s.Company, dateStart, dateEnd, recipients)
}
