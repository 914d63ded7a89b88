package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitchboard/stitchboard/pkg/models"
)

// Errors the API surfaces to the session layer. Wrapped responses keep
// the server's message text.
var (
	ErrUnauthorized = errors.New("not authorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Client is the typed HTTP client for the stitchboard API. It carries
// the bearer token obtained from Login on every request.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// SetToken installs a previously issued bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

type loginResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token and installs it on
// the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	payload := map[string]string{"email": email, "password": password}

	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", payload, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	c.token = resp.Token
	c.logger.WithField("email", email).Info("Logged in to stitchboard API")
	return nil
}

// ListOptions narrows a server-side order listing. The server's
// filtering is a convenience subset; the full filter engine runs
// client-side over the cached collection.
type ListOptions struct {
	Search   string
	Status   string
	Date     string
	Customer string
}

func (c *Client) ListOrders(ctx context.Context, opts ListOptions) ([]models.Order, error) {
	q := url.Values{}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Date != "" {
		q.Set("date", opts.Date)
	}
	if opts.Customer != "" {
		q.Set("customer", opts.Customer)
	}

	path := "/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var orders []models.Order
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	c.logger.WithField("count", len(orders)).Debug("Retrieved orders")
	return orders, nil
}

func (c *Client) CreateOrder(ctx context.Context, order models.Order) (models.Order, error) {
	var created models.Order
	if err := c.doJSON(ctx, http.MethodPost, "/orders", order, &created); err != nil {
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"id":       created.ID,
		"order_id": created.OrderID,
	}).Info("Order created")
	return created, nil
}

// UpdateOrder sends a partial update for the order with the given id.
func (c *Client) UpdateOrder(ctx context.Context, id string, patch models.OrderPatch) (models.Order, error) {
	var updated models.Order
	if err := c.doJSON(ctx, http.MethodPatch, "/orders/"+id, patch, &updated); err != nil {
		return models.Order{}, fmt.Errorf("update order: %w", err)
	}
	return updated, nil
}

// UpdateOrderStatus is the confirm half of an optimistic transition: a
// single-field patch moving the order to the target stage.
func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) (models.Order, error) {
	return c.UpdateOrder(ctx, id, models.OrderPatch{Status: &status})
}

func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/orders/"+id, nil, nil); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (c *Client) ListStatuses(ctx context.Context) ([]models.Status, error) {
	var statuses []models.Status
	if err := c.doJSON(ctx, http.MethodGet, "/statuses", nil, &statuses); err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	return statuses, nil
}

func (c *Client) CreateStatus(ctx context.Context, title, value string) (models.Status, error) {
	payload := map[string]string{"title": title, "value": value}
	var created models.Status
	if err := c.doJSON(ctx, http.MethodPost, "/statuses", payload, &created); err != nil {
		return models.Status{}, fmt.Errorf("create status: %w", err)
	}
	return created, nil
}

func (c *Client) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := c.doJSON(ctx, http.MethodGet, "/customers", nil, &customers); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

func (c *Client) CreateCustomer(ctx context.Context, customer models.Customer) (models.Customer, error) {
	var created models.Customer
	if err := c.doJSON(ctx, http.MethodPost, "/customers", customer, &created); err != nil {
		return models.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return created, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, id string, patch models.CustomerPatch) (models.Customer, error) {
	var updated models.Customer
	if err := c.doJSON(ctx, http.MethodPatch, "/customers/"+id, patch, &updated); err != nil {
		return models.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

func (c *Client) CustomerByPhone(ctx context.Context, phone string) (models.Customer, error) {
	var customer models.Customer
	if err := c.doJSON(ctx, http.MethodGet, "/customers/phone/"+url.PathEscape(phone), nil, &customer); err != nil {
		return models.Customer{}, fmt.Errorf("customer by phone: %w", err)
	}
	return customer, nil
}

// Upload sends attachment files and returns their durable locators.
func (c *Client) Upload(ctx context.Context, files map[string]io.Reader) ([]string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, r := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			return nil, fmt.Errorf("upload: %w", err)
		}
		if _, err := io.Copy(part, r); err != nil {
			return nil, fmt.Errorf("upload %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", body)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	var locators []string
	if err := json.NewDecoder(resp.Body).Decode(&locators); err != nil {
		return nil, fmt.Errorf("upload: decode response: %w", err)
	}
	return locators, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
	default:
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, apiErr.Message)
	}
}
