package source

import (
	"context"
	"time"

	"github.com/wingsum93/dropit-fetcher/internal/domain"
)

// ListOptions narrows a department listing.
type ListOptions struct {
	// Since, when non-nil, restricts the listing to items modified
	// at or after the given instant.
	Since *time.Time
}

// GrocerySource defines the interface for upstream grocery catalogs.
type GrocerySource interface {
	// ListDepartments returns every department of the given store.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - storeID: upstream store identifier.
	// Returns:
	//   - departments: all departments, in upstream order.
	//   - err: non-nil if the upstream call fails.
	ListDepartments(ctx context.Context, storeID string) (departments []domain.Department, err error)

	// ListItemsInDepartment walks every listing page of a department
	// and returns the item summaries in upstream order.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - departmentID: department to list.
	//   - opts: optional listing filters.
	// Returns:
	//   - items: item summaries across all pages.
	//   - err: non-nil if any page fails.
	ListItemsInDepartment(ctx context.Context, departmentID int, opts ListOptions) (items []domain.ItemSummary, err error)

	// FetchItemDetail retrieves the full detail record of one item.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - itemID: item to fetch.
	// Returns:
	//   - detail: full item record including the raw payload.
	//   - err: non-nil if the upstream call fails.
	FetchItemDetail(ctx context.Context, itemID int64) (detail *domain.ItemDetail, err error)
}
