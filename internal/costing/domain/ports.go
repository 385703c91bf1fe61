package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	invoicedomain "github.com/smallbiznis/costing/internal/invoice/domain"
	projectdomain "github.com/smallbiznis/costing/internal/project/domain"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	resourcedomain "github.com/smallbiznis/costing/internal/resource/domain"
)

// BillingStore is the durable store the engine reads from and syncs into.
type BillingStore interface {
	ListLocations(ctx context.Context, projectID snowflake.ID) ([]projectdomain.LocationView, error)
	GetLocation(ctx context.Context, id snowflake.ID) (*projectdomain.LocationView, error)
	ListResourcesByLocation(ctx context.Context, locationID snowflake.ID) ([]resourcedomain.Resource, error)
	ListBillingRecords(ctx context.Context, query billingrecorddomain.Query) ([]billingrecorddomain.BillingRecord, error)
	CreateBillingRecord(ctx context.Context, payload billingrecorddomain.Payload) (snowflake.ID, error)
	UpdateBillingRecord(ctx context.Context, id snowflake.ID, payload billingrecorddomain.Payload) error
	CreateInvoice(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Created, error)
}

// RateCatalog resolves the rate catalog of a location.
type RateCatalog interface {
	Rates(ctx context.Context, locationID snowflake.ID) ([]ratetierdomain.Rate, error)
}

// ResourceDirectory serves the full resource roster.
type ResourceDirectory interface {
	All(ctx context.Context) ([]resourcedomain.Resource, error)
}

// RowGuard serializes synchronization of the same row. Acquire returns
// ErrRowBusy when another sync holds the row.
type RowGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Workspace is the session state an operation runs against: the two
// session caches and the current view.
type Workspace struct {
	Rates     RateCatalog
	Resources ResourceDirectory
	View      *View
}

type Service interface {
	Reconcile(ctx context.Context, ws Workspace, filter Filter) ([]BillingRow, error)
	ApplyEdit(ctx context.Context, ws Workspace, uniqueID string, edit Edit) (EditResult, error)
	GenerateInvoice(ctx context.Context, ws Workspace, period Period) (InvoiceOutcome, error)
}
