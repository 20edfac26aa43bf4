package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"freeturn/internal/database"
)

// Client represents an HTTP client for the CRM API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 30*time.Second)
}

// NewClientWithTimeout creates a new API client with a custom timeout
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError represents an error from the API
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// ProjectView is a project as the API serves it, decorated with its display
// color and the transitions available from its current state.
type ProjectView struct {
	database.Project
	StateColor           string   `json:"state_color"`
	AvailableTransitions []string `json:"available_transitions"`
}

// TransitionResult reports an applied transition.
type TransitionResult struct {
	Project         ProjectView `json:"project"`
	Transition      string      `json:"transition"`
	Dispatched      bool        `json:"dispatched"`
	DispatchWarning string      `json:"dispatch_warning,omitempty"`
}

// SyncResult summarizes one mailbox sync run.
type SyncResult struct {
	Processed     int      `json:"processed"`
	Skipped       int      `json:"skipped"`
	Failed        int      `json:"failed"`
	AccountErrors []string `json:"account_errors,omitempty"`
}

// doRequest performs an HTTP request and handles errors
func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()

		message, err := io.ReadAll(resp.Body)
		if err != nil || len(message) == 0 {
			return nil, &APIError{Code: resp.StatusCode, Message: resp.Status}
		}
		return nil, &APIError{Code: resp.StatusCode, Message: strings.TrimSpace(string(message))}
	}

	return resp, nil
}

// HealthCheck checks if the API server is healthy
func (c *Client) HealthCheck() error {
	resp, err := c.doRequest("GET", "/api/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// GetProjects returns all projects, optionally filtered by state
func (c *Client) GetProjects(state string) ([]ProjectView, error) {
	path := "/api/projects"
	if state != "" {
		path += "?state=" + state
	}
	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var projects []ProjectView
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return projects, nil
}

// GetProject returns a specific project by ID
func (c *Client) GetProject(id int) (*ProjectView, error) {
	path := "/api/projects/" + strconv.Itoa(id)
	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var project ProjectView
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &project, nil
}

// GetProjectMessages returns the conversation of a project
func (c *Client) GetProjectMessages(projectID int) ([]database.ProjectMessage, error) {
	path := "/api/projects/" + strconv.Itoa(projectID) + "/messages"
	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var messages []database.ProjectMessage
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return messages, nil
}

// ApplyTransition fires a lifecycle transition on a project
func (c *Client) ApplyTransition(projectID int, transition string) (*TransitionResult, error) {
	path := "/api/projects/" + strconv.Itoa(projectID) + "/transitions/" + transition
	resp, err := c.doRequest("POST", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result TransitionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// TriggerSync runs a mailbox synchronization pass
func (c *Client) TriggerSync() (*SyncResult, error) {
	resp, err := c.doRequest("POST", "/api/sync", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result SyncResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetTemplates returns all message templates
func (c *Client) GetTemplates() ([]database.MessageTemplate, error) {
	resp, err := c.doRequest("GET", "/api/templates", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var templates []database.MessageTemplate
	if err := json.NewDecoder(resp.Body).Decode(&templates); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return templates, nil
}
