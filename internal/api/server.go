package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/reportdesk/internal/auth"
	"github.com/reportdesk/internal/config"
	"github.com/reportdesk/internal/models"
	"github.com/reportdesk/internal/report"
	"github.com/reportdesk/internal/scheduler"
)

type Server struct {
	db        *gorm.DB
	engine    *scheduler.Engine
	processor *report.Processor
	cfg       *config.Config
	router    *gin.Engine
}

func NewServer(db *gorm.DB, engine *scheduler.Engine, processor *report.Processor, cfg *config.Config) *Server {
	s := &Server{
		db:        db,
		engine:    engine,
		processor: processor,
		cfg:       cfg,
		router:    gin.Default(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Open endpoints
	s.router.GET("/health", s.health)
	s.router.POST("/test-payload", s.testPayload)
	s.router.POST("/auth/token", s.issueToken)

	// Everything else requires the bearer credential
	api := s.router.Group("/")
	api.Use(auth.Middleware(s.cfg.Auth.Token, s.cfg.Auth.JWTSecret))

	api.POST("/companies", s.createCompany)
	api.GET("/companies", s.listCompanies)
	api.GET("/companies/:id", s.getCompany)
	api.PUT("/companies/:id", s.updateCompany)
	api.DELETE("/companies/:id", s.deactivateCompany)

	api.POST("/companies/:id/users", s.addUser)
	api.GET("/companies/:id/users", s.listUsers)
	api.PUT("/companies/:id/users/:user_id", s.updateUser)
	api.DELETE("/companies/:id/users/:user_id", s.deleteUser)

	api.POST("/companies/:id/schedules", s.createSchedule)
	api.GET("/companies/:id/schedules", s.listSchedules)
	api.PUT("/companies/:id/schedules/:schedule_id", s.updateSchedule)
	api.DELETE("/companies/:id/schedules/:schedule_id", s.deleteSchedule)
	api.POST("/companies/:id/schedules/:schedule_id/run", s.triggerSchedule)

	api.POST("/fetch-tickets", s.fetchTickets)
	api.GET("/requests", s.listRequests)
	api.GET("/requests/:id", s.getRequest)
	api.GET("/requests/:id/logs", s.getRequestLogs)

	api.GET("/config", s.listConfig)
	api.PUT("/config/:key", s.updateConfig)

	api.POST("/scheduler/reload", s.reloadScheduler)
}

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	status := "healthy"
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "version": "1.0"})
}

func (s *Server) issueToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.cfg.Auth.Token == "" || req.Token != s.cfg.Auth.Token {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(s.cfg.Auth.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ===== companies =====

type companyCreate struct {
	Name        string `json:"name" binding:"required"`
	APIKey      string `json:"api_key" binding:"required"`
	APIURL      string `json:"api_url" binding:"required"`
	Description string `json:"description"`
}

type companyUpdate struct {
	Name        *string `json:"name"`
	APIKey      *string `json:"api_key"`
	APIURL      *string `json:"api_url"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (s *Server) createCompany(c *gin.Context) {
	var req companyCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.Company
	if err := s.db.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company already exists"})
		return
	}

	company := models.Company{
		Name:        req.Name,
		APIKey:      req.APIKey,
		APIURL:      req.APIURL,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.db.Create(&company).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logrus.WithField("company", company.Name).Info("company created")
	c.JSON(http.StatusCreated, company)
}

func (s *Server) listCompanies(c *gin.Context) {
	q := s.db.Order("name")
	if c.DefaultQuery("active", "true") == "true" {
		q = q.Where("is_active = ?", true)
	}

	var companies []models.Company
	if err := q.Find(&companies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, companies)
}

func (s *Server) getCompany(c *gin.Context) {
	company, ok := s.findCompany(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, company)
}

func (s *Server) updateCompany(c *gin.Context) {
	company, ok := s.findCompany(c)
	if !ok {
		return
	}

	var req companyUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.APIKey != nil {
		company.APIKey = *req.APIKey
	}
	if req.APIURL != nil {
		company.APIURL = *req.APIURL
	}
	if req.Description != nil {
		company.Description = *req.Description
	}
	if req.IsActive != nil {
		company.IsActive = *req.IsActive
	}

	if err := s.db.Save(company).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, company)
}

// deactivateCompany soft-deletes: history stays queryable.
func (s *Server) deactivateCompany(c *gin.Context) {
	company, ok := s.findCompany(c)
	if !ok {
		return
	}

	company.IsActive = false
	if err := s.db.Save(company).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf("deactivated %s", company.Name)})
}

func (s *Server) findCompany(c *gin.Context) (*models.Company, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return nil, false
	}

	var company models.Company
	if err := s.db.First(&company, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return &company, true
}

// ===== users =====

type userCreate struct {
	Email          string `json:"email" binding:"required,email"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	ReceiveReports *bool  `json:"receive_reports"`
}

type userUpdate struct {
	Email          *string `json:"email"`
	Name           *string `json:"name"`
	Role           *string `json:"role"`
	ReceiveReports *bool   `json:"receive_reports"`
	IsActive       *bool   `json:"is_active"`
}

func (s *Server) addUser(c *gin.Context) {
	company, ok := s.findCompany(c)
	if !ok {
		return
	}

	var req userCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.CompanyUser
	if err := s.db.Where("company_id = ? AND email = ?", company.ID, req.Email).
		First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
		return
	}

	user := models.CompanyUser{
		CompanyID:      company.ID,
		Email:          req.Email,
		Name:           req.Name,
		Role:           req.Role,
		ReceiveReports: true,
		IsActive:       true,
	}
	if req.ReceiveReports != nil {
		user.ReceiveReports = *req.ReceiveReports
	}
	if err := s.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logrus.WithFields(logrus.Fields{"email": user.Email, "company": company.Name}).Info("user added")
	c.JSON(http.StatusCreated, user)
}

func (s *Server) listUsers(c *gin.Context) {
	company, ok := s.findCompany(c)
	if !ok {
		return
	}

	var users []models.CompanyUser
	if err := s.db.Where("company_id = ?", company.ID).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) updateUser(c *gin.Context) {
	user, ok := s.findUser(c)
	if !ok {
		return
	}

	var req userUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.ReceiveReports != nil {
		user.ReceiveReports = *req.ReceiveReports
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.db.Save(user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) deleteUser(c *gin.Context) {
	user, ok := s.findUser(c)
	if !ok {
		return
	}

	if err := s.db.Unscoped().Delete(user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "user deleted"})
}

func (s *Server) findUser(c *gin.Context) (*models.CompanyUser, bool) {
	companyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return nil, false
	}
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return nil, false
	}

	var user models.CompanyUser
	if err := s.db.Where("id = ? AND company_id = ?", uint(userID), uint(companyID)).
		First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return nil, false
	}
	return &user, true
}
