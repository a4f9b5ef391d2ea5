package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/reportdesk/internal/models"
	"github.com/reportdesk/internal/scheduler"
	"github.com/reportdesk/internal/timeutil"
	"github.com/reportdesk/internal/upstream"
)

// ===== schedules =====

type scheduleCreate struct {
	Name           string            `json:"name" binding:"required"`
	Description    string            `json:"description"`
	ReportType     models.ReportType `json:"report_type"`
	CronExpression string            `json:"cron_expression"`
	DateStart      string            `json:"date_start"`
	DateEnd        string            `json:"date_end"`
	Recipients     string            `json:"recipients"`
	IsActive       *bool             `json:"is_active"`
}

type scheduleUpdate struct {
	Name           *string            `json:"name"`
	Description    *string            `json:"description"`
	ReportType     *models.ReportType `json:"report_type"`
	CronExpression *string            `json:"cron_expression"`
	DateStart      *string            `json:"date_start"`
	DateEnd        *string            `json:"date_end"`
	Recipients     *string            `json:"recipients"`
	IsActive       *bool              `json:"is_active"`
}

func (s *Server) createSchedule(c *gin.Context) {
	company, ok := s.findCompany(c)
	if !ok {
		return
	}

	var req scheduleCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ReportType == "" {
		req.ReportType = models.ReportTypeMonthly
	}
	if !req.ReportType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report_type must be one of: daily, weekly, monthly, custom"})
		return
	}
	if req.CronExpression != "" {
		if err := scheduler.ValidateCron(req.CronExpression); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	schedule := models.ReportSchedule{
		CompanyID:      company.ID,
		Name:           req.Name,
		Description:    req.Description,
		ReportType:     req.ReportType,
		CronExpression: req.CronExpression,
		DateStart:      req.DateStart,
		DateEnd:        req.DateEnd,
		Recipients:     req.Recipients,
		IsActive:       true,
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}
	if err := s.db.Create(&schedule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.Upsert(&schedule); err != nil {
		logrus.WithError(err).WithField("schedule_id", schedule.ID).
			Error("failed to register schedule trigger")
	}

	logrus.WithFields(logrus.Fields{"schedule_id": schedule.ID, "company": company.Name}).
		Info("schedule created")
	c.JSON(http.StatusCreated, schedule)
}

func (s *Server) listSchedules(c *gin.Context) {
	company, ok := s.findCompany(c)
	if !ok {
		return
	}

	var schedules []models.ReportSchedule
	if err := s.db.Where("company_id = ?", company.ID).Find(&schedules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, schedules)
}

func (s *Server) updateSchedule(c *gin.Context) {
	schedule, ok := s.findSchedule(c)
	if !ok {
		return
	}

	var req scheduleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ReportType != nil && !req.ReportType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report_type must be one of: daily, weekly, monthly, custom"})
		return
	}
	if req.CronExpression != nil && *req.CronExpression != "" {
		if err := scheduler.ValidateCron(*req.CronExpression); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.Description != nil {
		schedule.Description = *req.Description
	}
	if req.ReportType != nil {
		schedule.ReportType = *req.ReportType
	}
	if req.CronExpression != nil {
		schedule.CronExpression = *req.CronExpression
	}
	if req.DateStart != nil {
		schedule.DateStart = *req.DateStart
	}
	if req.DateEnd != nil {
		schedule.DateEnd = *req.DateEnd
	}
	if req.Recipients != nil {
		schedule.Recipients = *req.Recipients
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}

	if err := s.db.Save(schedule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.Upsert(schedule); err != nil {
		logrus.WithError(err).WithField("schedule_id", schedule.ID).
			Error("failed to update schedule trigger")
	}
	c.JSON(http.StatusOK, schedule)
}

func (s *Server) deleteSchedule(c *gin.Context) {
	schedule, ok := s.findSchedule(c)
	if !ok {
		return
	}

	s.engine.Remove(schedule.ID)
	if err := s.db.Unscoped().Delete(schedule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "schedule deleted"})
}

func (s *Server) triggerSchedule(c *gin.Context) {
	schedule, ok := s.findSchedule(c)
	if !ok {
		return
	}

	go s.engine.Fire(schedule.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "schedule triggered"})
}

func (s *Server) findSchedule(c *gin.Context) (*models.ReportSchedule, bool) {
	companyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return nil, false
	}
	scheduleID, err := strconv.ParseUint(c.Param("schedule_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule ID"})
		return nil, false
	}

	var schedule models.ReportSchedule
	if err := s.db.Where("id = ? AND company_id = ?", uint(scheduleID), uint(companyID)).
		First(&schedule).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return nil, false
	}
	return &schedule, true
}

// ===== ticket requests =====

type ticketRequestCreate struct {
	CompanyID uint   `json:"company_id" binding:"required"`
	DateStart string `json:"date_start" binding:"required"`
	DateEnd   string `json:"date_end"`
	EmailTo   string `json:"email_to"`
}

func (s *Server) fetchTickets(c *gin.Context) {
	var req ticketRequestCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var company models.Company
	if err := s.db.Preload("Users").
		Where("id = ? AND is_active = ?", req.CompanyID, true).
		First(&company).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found or inactive"})
		return
	}

	if err := timeutil.ValidateRange(req.DateStart, req.DateEnd, s.maxRangeDays()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.EmailTo == "" {
		req.EmailTo = strings.Join(company.SubscribedEmails(), ",")
	}

	request := models.TicketRequest{
		CompanyID: company.ID,
		DateStart: req.DateStart,
		DateEnd:   req.DateEnd,
		EmailTo:   req.EmailTo,
		Status:    models.RequestStatusProcessing,
	}
	if err := s.db.Create(&request).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go s.processor.Run(context.Background(), request.ID, &company, req.DateStart, req.DateEnd, req.EmailTo)

	logrus.WithFields(logrus.Fields{"request_id": request.ID, "company": company.Name}).
		Info("ticket request accepted")
	c.JSON(http.StatusCreated, request)
}

func (s *Server) listRequests(c *gin.Context) {
	q := s.db.Order("created_at desc")
	if companyID := c.Query("company_id"); companyID != "" {
		q = q.Where("company_id = ?", companyID)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	var requests []models.TicketRequest
	if err := q.Limit(limit).Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (s *Server) getRequest(c *gin.Context) {
	request, ok := s.findRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, request)
}

func (s *Server) getRequestLogs(c *gin.Context) {
	request, ok := s.findRequest(c)
	if !ok {
		return
	}

	var requestLogs []models.RequestLog
	var emailLogs []models.EmailLog
	if err := s.db.Where("ticket_request_id = ?", request.ID).Find(&requestLogs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.db.Where("ticket_request_id = ?", request.ID).Find(&emailLogs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request_logs": requestLogs,
		"email_logs":   emailLogs,
	})
}

func (s *Server) findRequest(c *gin.Context) (*models.TicketRequest, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request ID"})
		return nil, false
	}

	var request models.TicketRequest
	if err := s.db.First(&request, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
		return nil, false
	}
	return &request, true
}

// maxRangeDays prefers the admin-editable SystemConfig value over the static
// config default.
func (s *Server) maxRangeDays() int {
	var entry models.SystemConfig
	if err := s.db.Where("config_key = ?", "max_date_range_days").First(&entry).Error; err == nil {
		if days, err := strconv.Atoi(entry.ConfigValue); err == nil && days > 0 {
			return days
		}
	}
	return s.cfg.Report.MaxRangeDays
}

// ===== system config =====

func (s *Server) listConfig(c *gin.Context) {
	var entries []models.SystemConfig
	if err := s.db.Order("config_key").Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) updateConfig(c *gin.Context) {
	var req struct {
		Value       string `json:"value" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := c.Param("key")
	var entry models.SystemConfig
	if err := s.db.Where("config_key = ?", key).First(&entry).Error; err != nil {
		entry = models.SystemConfig{ConfigKey: key}
	}
	entry.ConfigValue = req.Value
	if req.Description != "" {
		entry.Description = req.Description
	}

	if err := s.db.Save(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ===== diagnostics =====

// testPayload echoes the exact upstream payload a request would send,
// without calling the ticket API or creating any records.
func (s *Server) testPayload(c *gin.Context) {
	var req ticketRequestCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var company models.Company
	if err := s.db.First(&company, req.CompanyID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return
	}

	startMS, err := timeutil.ToUnixMillis(req.DateStart, false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	endMS := ""
	endReadable := ""
	if req.DateEnd != "" {
		ms, err := timeutil.ToUnixMillis(req.DateEnd, true)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		endMS = strconv.FormatInt(ms, 10)
		endReadable = timeutil.FormatInstant(float64(ms))
	}

	payload := upstream.NewPayload(company.APIKey, strconv.FormatInt(startMS, 10), endMS)
	c.JSON(http.StatusOK, gin.H{
		"company":             company.Name,
		"date_start_input":    req.DateStart,
		"date_end_input":      req.DateEnd,
		"date_start_unix":     startMS,
		"date_end_unix":       endMS,
		"date_start_readable": timeutil.FormatInstant(float64(startMS)),
		"date_end_readable":   endReadable,
		"payload_sent":        payload,
	})
}

func (s *Server) reloadScheduler(c *gin.Context) {
	if err := s.engine.LoadAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "schedules reloaded"})
}
