package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/reportdesk/internal/models"
)

// APIClient talks to a running reportdesk server. The bearer token is read
// from viper ("token") so login state survives between invocations.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *APIClient) doRequest(method, path string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	token := viper.GetString("token")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(respBody))
	}

	return respBody, nil
}

// Login exchanges the long-lived API credential for a session token.
func (c *APIClient) Login(apiToken string) (string, error) {
	resp, err := c.doRequest("POST", "/auth/token", map[string]string{"token": apiToken})
	if err != nil {
		return "", err
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", err
	}
	return result.Token, nil
}

func (c *APIClient) ListCompanies(includeInactive bool) ([]models.Company, error) {
	path := "/companies"
	if includeInactive {
		path += "?active=false"
	}

	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var companies []models.Company
	if err := json.Unmarshal(resp, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

func (c *APIClient) CreateCompany(company map[string]interface{}) (*models.Company, error) {
	resp, err := c.doRequest("POST", "/companies", company)
	if err != nil {
		return nil, err
	}

	var created models.Company
	if err := json.Unmarshal(resp, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *APIClient) AddUser(companyID uint, user map[string]interface{}) error {
	_, err := c.doRequest("POST", fmt.Sprintf("/companies/%d/users", companyID), user)
	return err
}

func (c *APIClient) ListSchedules(companyID uint) ([]models.ReportSchedule, error) {
	resp, err := c.doRequest("GET", fmt.Sprintf("/companies/%d/schedules", companyID), nil)
	if err != nil {
		return nil, err
	}

	var schedules []models.ReportSchedule
	if err := json.Unmarshal(resp, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (c *APIClient) CreateSchedule(companyID uint, schedule map[string]interface{}) (*models.ReportSchedule, error) {
	resp, err := c.doRequest("POST", fmt.Sprintf("/companies/%d/schedules", companyID), schedule)
	if err != nil {
		return nil, err
	}

	var created models.ReportSchedule
	if err := json.Unmarshal(resp, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *APIClient) RunSchedule(companyID, scheduleID uint) error {
	_, err := c.doRequest("POST", fmt.Sprintf("/companies/%d/schedules/%d/run", companyID, scheduleID), nil)
	return err
}

func (c *APIClient) FetchTickets(companyID uint, dateStart, dateEnd, emailTo string) (*models.TicketRequest, error) {
	body := map[string]interface{}{
		"company_id": companyID,
		"date_start": dateStart,
	}
	if dateEnd != "" {
		body["date_end"] = dateEnd
	}
	if emailTo != "" {
		body["email_to"] = emailTo
	}

	resp, err := c.doRequest("POST", "/fetch-tickets", body)
	if err != nil {
		return nil, err
	}

	var request models.TicketRequest
	if err := json.Unmarshal(resp, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (c *APIClient) ListRequests(companyID uint, status string) ([]models.TicketRequest, error) {
	path := "/requests"
	sep := "?"
	if companyID != 0 {
		path += fmt.Sprintf("%scompany_id=%d", sep, companyID)
		sep = "&"
	}
	if status != "" {
		path += sep + "status=" + status
	}

	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var requests []models.TicketRequest
	if err := json.Unmarshal(resp, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (c *APIClient) GetRequest(id uint) (*models.TicketRequest, error) {
	resp, err := c.doRequest("GET", fmt.Sprintf("/requests/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var request models.TicketRequest
	if err := json.Unmarshal(resp, &request); err != nil {
		return nil, err
	}
	return &request, nil
}
