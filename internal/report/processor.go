package report

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/reportdesk/internal/models"
	"github.com/reportdesk/internal/timeutil"
	"github.com/reportdesk/internal/upstream"
)

// TicketFetcher calls the external ticket API for one request.
type TicketFetcher interface {
	Fetch(ctx context.Context, requestID uint, apiURL string, payload upstream.Payload) ([]upstream.Ticket, error)
}

// Processor runs the full pipeline for one request: fetch, tabulate, deliver.
// It owns the request's lifecycle record; errors at any stage are persisted
// onto the request and never propagate to the caller.
type Processor struct {
	db         *gorm.DB
	fetcher    TicketFetcher
	dispatcher *Dispatcher
	outputDir  string
}

func NewProcessor(db *gorm.DB, fetcher TicketFetcher, dispatcher *Dispatcher, outputDir string) *Processor {
	return &Processor{
		db:         db,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		outputDir:  outputDir,
	}
}

// Run executes the pipeline for requestID. Safe to call from a goroutine or
// a scheduler tick; the caller always observes a terminal, persisted outcome.
func (p *Processor) Run(ctx context.Context, requestID uint, company *models.Company, dateStart, dateEnd, emailTo string) {
	log := logrus.WithFields(logrus.Fields{
		"run_id":     uuid.NewString()[:8],
		"request_id": requestID,
		"company":    company.Name,
	})
	started := time.Now()

	if err := p.run(ctx, log, requestID, company, dateStart, dateEnd, emailTo, started); err != nil {
		log.WithError(err).Error("report request failed")
		p.update(requestID, func(r *models.TicketRequest) {
			now := time.Now()
			r.Status = models.RequestStatusFailed
			r.ErrorMessage = err.Error()
			r.CompletedAt = &now
			r.ProcessingTimeSeconds = int(time.Since(started).Seconds())
		})
	}
}

func (p *Processor) run(ctx context.Context, log *logrus.Entry, requestID uint, company *models.Company, dateStart, dateEnd, emailTo string, started time.Time) error {
	startMS, err := timeutil.ToUnixMillis(dateStart, false)
	if err != nil {
		return err
	}
	endMS := ""
	if dateEnd != "" {
		ms, err := timeutil.ToUnixMillis(dateEnd, true)
		if err != nil {
			return err
		}
		endMS = strconv.FormatInt(ms, 10)
	}

	payload := upstream.NewPayload(company.APIKey, strconv.FormatInt(startMS, 10), endMS)
	tickets, err := p.fetcher.Fetch(ctx, requestID, company.APIURL, payload)
	if err != nil {
		return err
	}

	if len(tickets) == 0 {
		log.Info("no tickets found")
		p.update(requestID, func(r *models.TicketRequest) {
			now := time.Now()
			r.Status = models.RequestStatusCompleted
			r.TotalTickets = 0
			r.CompletedAt = &now
			r.ProcessingTimeSeconds = int(time.Since(started).Seconds())
		})
		return nil
	}

	table := Tabulate(tickets, time.Now().UTC())
	fileName := BuildFilename(company.Name, dateStart, dateEnd)
	filePath := filepath.Join(p.outputDir, fileName)
	if err := table.WriteCSV(filePath); err != nil {
		return err
	}

	p.update(requestID, func(r *models.TicketRequest) {
		r.FilePath = filePath
		r.FileName = fileName
		r.TotalTickets = len(tickets)
	})

	sum := Summary{
		Company:      company.Name,
		DateStart:    dateStart,
		DateEnd:      dateEnd,
		TicketCount:  len(tickets),
		DurationSecs: int(time.Since(started).Seconds()),
		Recipients:   SplitRecipients(emailTo),
	}
	if p.dispatcher != nil {
		if len(sum.Recipients) > 0 {
			p.dispatcher.Deliver(requestID, sum.Recipients, filePath, sum)
		}
		p.dispatcher.Notify(sum)
	}

	p.update(requestID, func(r *models.TicketRequest) {
		now := time.Now()
		r.Status = models.RequestStatusCompleted
		r.CompletedAt = &now
		r.ProcessingTimeSeconds = int(time.Since(started).Seconds())
	})

	log.WithFields(logrus.Fields{
		"tickets": len(tickets),
		"file":    fileName,
	}).Info("report request completed")
	return nil
}

// update applies fn to the request row unless it already reached a terminal
// state. Terminal states are immutable.
func (p *Processor) update(requestID uint, fn func(*models.TicketRequest)) {
	var r models.TicketRequest
	if err := p.db.First(&r, requestID).Error; err != nil {
		logrus.WithError(err).WithField("request_id", requestID).
			Error("failed to load request for update")
		return
	}
	if r.Status.Terminal() {
		return
	}
	fn(&r)
	if err := p.db.Save(&r).Error; err != nil {
		logrus.WithError(err).WithField("request_id", requestID).
			Error("failed to update request")
	}
}
