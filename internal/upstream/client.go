package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/reportdesk/internal/models"
)

// UpstreamError reports a non-2xx response from the external ticket API.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream API returned status %d", e.StatusCode)
}

// Payload is the fixed request shape the ticket API requires. Every filter
// field must be present even when unused.
type Payload struct {
	API            string `json:"API"`
	Module         string `json:"module"`
	DateStart      string `json:"date_start"`
	DateEnd        string `json:"date_end"`
	TicketID       string `json:"ticket_id"`
	Location       string `json:"location"`
	Status         string `json:"status"`
	Source         string `json:"source"`
	Category       string `json:"category"`
	Disposition    string `json:"disposition"`
	SubDisposition string `json:"sub_disposition"`
	Comments       string `json:"comments"`
	CreatedBy      string `json:"created_by"`
	AssignedTo     string `json:"assigned_to"`
	AssetName      string `json:"asset_name"`
}

// NewPayload builds the helpdesk query body for a resolved date range.
// dateEnd may be empty when the caller requested an open-ended range.
func NewPayload(apiKey, dateStartMS, dateEndMS string) Payload {
	return Payload{
		API:       apiKey,
		Module:    "Helpdesk",
		DateStart: dateStartMS,
		DateEnd:   dateEndMS,
	}
}

// Client calls the per-company ticket API and records every call as a
// RequestLog row.
type Client struct {
	httpClient    *http.Client
	db            *gorm.DB
	truncateLimit int
}

func NewClient(db *gorm.DB, timeout time.Duration, truncateLimit int) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		db:            db,
		truncateLimit: truncateLimit,
	}
}

// Fetch posts the payload to apiURL and decodes the ticket array. An empty
// or absent body is a valid zero-ticket outcome. The RequestLog row is
// written before the call and completed immediately after it.
func (c *Client) Fetch(ctx context.Context, requestID uint, apiURL string, payload Payload) ([]Ticket, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream payload: %w", err)
	}

	callLog := models.RequestLog{
		TicketRequestID: requestID,
		APIURL:          apiURL,
		RequestPayload:  string(body),
	}
	if err := c.db.Create(&callLog).Error; err != nil {
		return nil, fmt.Errorf("record request log: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"request_id": requestID,
		"date_start": payload.DateStart,
		"date_end":   payload.DateEnd,
	}).Info("calling upstream ticket API")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	callStart := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		callLog.RequestDurationMS = int(time.Since(callStart).Milliseconds())
		c.saveLog(&callLog)
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	callLog.ResponseStatusCode = resp.StatusCode
	callLog.RequestDurationMS = int(time.Since(callStart).Milliseconds())
	callLog.ResponseData = c.truncate(string(raw))
	c.saveLog(&callLog)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var tickets []Ticket
	if err := json.Unmarshal(trimmed, &tickets); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"request_id": requestID,
		"tickets":    len(tickets),
	}).Info("upstream response received")
	return tickets, nil
}

func (c *Client) saveLog(l *models.RequestLog) {
	if err := c.db.Save(l).Error; err != nil {
		logrus.WithError(err).WithField("request_id", l.TicketRequestID).
			Error("failed to update request log")
	}
}

func (c *Client) truncate(s string) string {
	if c.truncateLimit > 0 && len(s) > c.truncateLimit {
		return s[:c.truncateLimit] + "..."
	}
	return s
}
