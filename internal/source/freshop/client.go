// Package freshop implements the GrocerySource interface against the
// Freshop catalog API.
package freshop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wingsum93/dropit-fetcher/internal/config"
	"github.com/wingsum93/dropit-fetcher/internal/domain"
	"github.com/wingsum93/dropit-fetcher/internal/logger"
	"github.com/wingsum93/dropit-fetcher/internal/source"
)

const (
	departmentFields  = "id,name,parent_id,parent_ids,count,canonical_url"
	productListFields = "id,count"
)

// Client calls the Freshop catalog API.
type Client struct {
	http *resty.Client
	cfg  *config.GroceryConfig
	log  *logger.Logger
}

// NewClient creates a Freshop API client. The transport, when non-nil,
// replaces the default HTTP transport so callers can inject rate-limit
// aware pacing.
func NewClient(cfg *config.GroceryConfig, transport http.RoundTripper, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout())
	client.SetRetryCount(cfg.RetryCount)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		switch r.StatusCode() {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	})
	if transport != nil {
		client.SetTransport(transport)
	}

	return &Client{
		http: client,
		cfg:  cfg,
		log:  log,
	}
}

// Freshop API response structures
type departmentDTO struct {
	ID           string `json:"id"`
	ParentID     string `json:"parent_id,omitempty"`
	Name         string `json:"name"`
	Count        int    `json:"count"`
	CanonicalURL string `json:"canonical_url,omitempty"`
}

type departmentListResponse struct {
	Items []departmentDTO `json:"items"`
	Total int             `json:"total"`
}

type productSummaryDTO struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

type productListResponse struct {
	Items []productSummaryDTO `json:"items"`
	Total int                 `json:"total"`
}

type productDetailDTO struct {
	ID            string   `json:"id"`
	StoreID       string   `json:"store_id"`
	Name          string   `json:"name"`
	Status        string   `json:"status"`
	Category      string   `json:"category"`
	Price         string   `json:"price"`
	Popularity    int      `json:"popularity"`
	UPC           string   `json:"upc"`
	CanonicalURL  string   `json:"canonical_url"`
	DepartmentIDs []string `json:"department_ids"`
}

// ListDepartments returns every department of the given store.
func (c *Client) ListDepartments(ctx context.Context, storeID string) ([]domain.Department, error) {
	var result departmentListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"app_key":  c.cfg.AppKey,
			"store_id": storeID,
			"token":    c.cfg.Token,
			"fields":   departmentFields,
		}).
		SetResult(&result).
		Get("/departments")
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("department listing returned status %d", resp.StatusCode())
	}

	store, _ := strconv.Atoi(storeID)
	departments := make([]domain.Department, 0, len(result.Items))
	for _, dto := range result.Items {
		id, err := strconv.Atoi(dto.ID)
		if err != nil {
			c.log.WithFields(logger.Fields{"raw_id": dto.ID}).
				Warn("Skipping department with non-numeric id")
			continue
		}
		dept := domain.Department{
			ID:           id,
			Name:         dto.Name,
			StoreID:      store,
			Count:        dto.Count,
			CanonicalURL: dto.CanonicalURL,
		}
		if dto.ParentID != "" {
			if parent, err := strconv.Atoi(dto.ParentID); err == nil {
				dept.ParentID = &parent
			}
		}
		departments = append(departments, dept)
	}
	return departments, nil
}

// ListItemsInDepartment walks the listing pages of one department
// sequentially. Paging stops at the first page shorter than the
// configured page size.
func (c *Client) ListItemsInDepartment(ctx context.Context, departmentID int, opts source.ListOptions) ([]domain.ItemSummary, error) {
	pageSize := c.cfg.PageSize
	var items []domain.ItemSummary

	for page := 0; ; page++ {
		params := map[string]string{
			"app_key":               c.cfg.AppKey,
			"store_id":              c.cfg.StoreID,
			"token":                 c.cfg.Token,
			"render_id":             c.cfg.RenderID,
			"department_id":         strconv.Itoa(departmentID),
			"department_id_cascade": "true",
			"popularity_sort":       "asc",
			"limit":                 strconv.Itoa(pageSize),
			"skip":                  strconv.Itoa(page * pageSize),
			"fields":                productListFields,
		}
		if opts.Since != nil {
			params["modified_start_date"] = opts.Since.UTC().Format(time.RFC3339)
		}

		var result productListResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(&result).
			Get("/products")
		if err != nil {
			return nil, fmt.Errorf("failed to list department %d page %d: %w", departmentID, page, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("department %d page %d returned status %d", departmentID, page, resp.StatusCode())
		}

		for _, dto := range result.Items {
			id, err := strconv.ParseInt(dto.ID, 10, 64)
			if err != nil {
				c.log.WithFields(logger.Fields{"raw_id": dto.ID}).
					Warn("Skipping item with non-numeric id")
				continue
			}
			items = append(items, domain.ItemSummary{ID: id, Count: dto.Count})
		}

		if len(result.Items) < pageSize {
			break
		}
	}
	return items, nil
}

// FetchItemDetail retrieves the full detail record of one item. The raw
// response body is preserved verbatim for snapshot persistence.
func (c *Client) FetchItemDetail(ctx context.Context, itemID int64) (*domain.ItemDetail, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("app_key", c.cfg.AppKey).
		Get(fmt.Sprintf("/products/%d", itemID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item %d: %w", itemID, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("item %d returned status %d", itemID, resp.StatusCode())
	}

	body := resp.Body()
	var dto productDetailDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("failed to decode item %d: %w", itemID, err)
	}

	detail := &domain.ItemDetail{
		ID:           itemID,
		Name:         dto.Name,
		Status:       dto.Status,
		Category:     dto.Category,
		Popularity:   dto.Popularity,
		UPC:          dto.UPC,
		CanonicalURL: dto.CanonicalURL,
		Raw:          json.RawMessage(append([]byte(nil), body...)),
	}
	if dto.StoreID != "" {
		detail.StoreID, _ = strconv.Atoi(dto.StoreID)
	}
	if dto.Price != "" {
		if price, err := strconv.ParseFloat(dto.Price, 64); err == nil {
			detail.UnitPrice = price
		}
	}
	for _, raw := range dto.DepartmentIDs {
		if id, err := strconv.Atoi(raw); err == nil {
			detail.DepartmentIDs = append(detail.DepartmentIDs, id)
		}
	}
	return detail, nil
}

// Raw performs a bare GET against the API and returns the response body.
// Used by the probe tool to capture payloads for inspection.
func (c *Client) Raw(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	query := map[string]string{"app_key": c.cfg.AppKey}
	for k, v := range params {
		query[k] = v
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", path, resp.StatusCode())
	}
	return resp.Body(), nil
}
