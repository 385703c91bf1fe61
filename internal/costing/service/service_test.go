package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/costing/internal/config"
	costingdomain "github.com/smallbiznis/costing/internal/costing/domain"
	"github.com/smallbiznis/costing/internal/ratecatalog"
	"github.com/smallbiznis/costing/internal/resourcedirectory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	projectID  snowflake.ID = 1
	locationID snowflake.ID = 10
	ana        snowflake.ID = 100
	ben        snowflake.ID = 101
	cleo       snowflake.ID = 102
)

var period = costingdomain.Period{Month: 9, Year: 2025}

func singleLocation() costingdomain.Filter {
	return costingdomain.Filter{LocationID: locationID, Month: period.Month, Year: period.Year}
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// standardStore has one location (flat rate 40, rates 15/20/25/30) and Ana assigned to it.
func standardStore() *fakeStore {
	store := newFakeStore()
	store.addLocation(projectID, locationID, "Release of Information", "Austin", 40)
	store.setRates(locationID, 15, 20, 25, 30)
	store.addResource(ana, "Ana", locationID)
	return store
}

func newTestService(store *fakeStore, guard costingdomain.RowGuard) *Service {
	return NewService(ServiceParam{
		Log:    zap.NewNop(),
		Store:  store,
		Config: config.NewStaticCostingConfigHolder(config.DefaultCostingConfig()),
		Guard:  guard,
	}).(*Service)
}

func newWorkspace(store *fakeStore) costingdomain.Workspace {
	return costingdomain.Workspace{
		Rates:     ratecatalog.New(store, nil),
		Resources: resourcedirectory.New(store),
		View:      costingdomain.NewView(),
	}
}

func reconcile(t *testing.T, svc *Service, ws costingdomain.Workspace, filter costingdomain.Filter) []costingdomain.BillingRow {
	t.Helper()
	rows, err := svc.Reconcile(context.Background(), ws, filter)
	require.NoError(t, err)
	return rows
}

func findRow(t *testing.T, rows []costingdomain.BillingRow, resourceID snowflake.ID) costingdomain.BillingRow {
	t.Helper()
	for _, row := range rows {
		if row.ResourceID == resourceID {
			return row
		}
	}
	t.Fatalf("no row for resource %s", resourceID)
	return costingdomain.BillingRow{}
}

type busyGuard struct{}

func (busyGuard) Acquire(context.Context, string) (func(), error) {
	return nil, costingdomain.ErrRowBusy
}

var errUnavailable = errors.New("store unavailable")
