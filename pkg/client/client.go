// Package client is a typed client for the playbook REST API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dukex/playbook/pkg/models"
	fiberclient "github.com/gofiber/fiber/v3/client"
)

const DefaultBaseURL = "http://localhost:9091"

// APIError is returned for every non-2xx answer.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}

	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Draft is the body of create and update requests.
type Draft struct {
	Title               string                  `json:"title"`
	Steps               []models.Step           `json:"steps"`
	IsPlaybook          bool                    `json:"isPlaybook"`
	PlaybookDescription string                  `json:"playbook_description"`
	PlaybookSection     *models.PlaybookSection `json:"playbookSection,omitempty"`
}

// DraftOf returns the editable fields of a record.
func DraftOf(record *models.Record) Draft {
	draft := Draft{
		Title:               record.Title,
		Steps:               record.Steps,
		IsPlaybook:          record.IsPlaybook(),
		PlaybookDescription: record.Description(),
	}

	if section := record.Section(); section != "" {
		draft.PlaybookSection = &section
	}

	if draft.Steps == nil {
		draft.Steps = []models.Step{}
	}

	return draft
}

type Client struct {
	http *fiberclient.Client
}

// New creates a client for the API served at baseURL.
func New(baseURL string) *Client {
	httpClient := fiberclient.New()
	httpClient.SetBaseURL(baseURL)

	return &Client{http: httpClient}
}

type envelope struct {
	Success   bool             `json:"success"`
	ID        string           `json:"id"`
	Error     string           `json:"error"`
	Workflow  *models.Record   `json:"workflow"`
	Playbook  *models.Record   `json:"playbook"`
	Workflows []*models.Record `json:"workflows"`
	Playbooks []*models.Record `json:"playbooks"`
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	req := c.http.R().SetContext(ctx)

	if body != nil {
		req.SetJSON(body)
	}

	var (
		resp *fiberclient.Response
		err  error
	)

	switch method {
	case http.MethodGet:
		resp, err = req.Get(path)
	case http.MethodPost:
		resp, err = req.Post(path)
	case http.MethodPut:
		resp, err = req.Put(path)
	case http.MethodPatch:
		resp, err = req.Patch(path)
	case http.MethodDelete:
		resp, err = req.Delete(path)
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}

	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}

	defer resp.Close()

	var answer envelope

	decodeErr := resp.JSON(&answer)

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		message := answer.Error
		if decodeErr != nil {
			message = string(resp.Body())
		}

		return nil, &APIError{StatusCode: resp.StatusCode(), Message: message}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode %s %s response: %w", method, path, decodeErr)
	}

	return &answer, nil
}

func recordPath(collection, id string) string {
	return "/" + collection + "/" + url.PathEscape(id)
}

func (c *Client) ListWorkflows(ctx context.Context) ([]*models.Record, error) {
	answer, err := c.do(ctx, http.MethodGet, "/workflows", nil)
	if err != nil {
		return nil, err
	}

	return answer.Workflows, nil
}

func (c *Client) ListPlaybooks(ctx context.Context) ([]*models.Record, error) {
	answer, err := c.do(ctx, http.MethodGet, "/playbooks", nil)
	if err != nil {
		return nil, err
	}

	return answer.Playbooks, nil
}

// GetWorkflow returns the record, or an APIError for which IsNotFound is true.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*models.Record, error) {
	answer, err := c.do(ctx, http.MethodGet, recordPath("workflows", id), nil)
	if err != nil {
		return nil, err
	}

	return answer.Workflow, nil
}

func (c *Client) GetPlaybook(ctx context.Context, id string) (*models.Record, error) {
	answer, err := c.do(ctx, http.MethodGet, recordPath("playbooks", id), nil)
	if err != nil {
		return nil, err
	}

	return answer.Playbook, nil
}

// CreateWorkflow stores draft and returns the id the server assigned.
func (c *Client) CreateWorkflow(ctx context.Context, draft Draft) (string, error) {
	answer, err := c.do(ctx, http.MethodPost, "/workflows", draft)
	if err != nil {
		return "", err
	}

	return answer.ID, nil
}

func (c *Client) CreatePlaybook(ctx context.Context, draft Draft) (string, error) {
	answer, err := c.do(ctx, http.MethodPost, "/playbooks", draft)
	if err != nil {
		return "", err
	}

	return answer.ID, nil
}

func (c *Client) UpdateWorkflow(ctx context.Context, id string, draft Draft) error {
	_, err := c.do(ctx, http.MethodPut, recordPath("workflows", id), draft)

	return err
}

func (c *Client) UpdatePlaybook(ctx context.Context, id string, draft Draft) error {
	_, err := c.do(ctx, http.MethodPut, recordPath("playbooks", id), draft)

	return err
}

func (c *Client) UpdateStatus(ctx context.Context, id string, running bool) error {
	_, err := c.do(ctx, http.MethodPatch, recordPath("workflows", id)+"/status", map[string]bool{"isRunning": running})

	return err
}

func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, recordPath("workflows", id), nil)

	return err
}
