package billingstore

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	billingrecordrepo "github.com/smallbiznis/costing/internal/billingrecord/repository"
	"github.com/smallbiznis/costing/internal/clock"
	"github.com/smallbiznis/costing/internal/config"
	invoicedomain "github.com/smallbiznis/costing/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/costing/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/costing/internal/invoice/service"
	projectrepo "github.com/smallbiznis/costing/internal/project/repository"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	ratetierrepo "github.com/smallbiznis/costing/internal/ratetier/repository"
	resourcerepo "github.com/smallbiznis/costing/internal/resource/repository"
	"github.com/smallbiznis/costing/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T, db *gorm.DB, fix *testutil.Fixtures) *Store {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2025, time.October, 2, 8, 0, 0, 0, time.UTC))
	records := billingrecordrepo.Provide()
	invoiceSvc := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       fix.Node(),
		Clock:       clk,
		Config:      config.NewStaticCostingConfigHolder(config.DefaultCostingConfig()),
		Repo:        invoicerepo.Provide(),
		RecordsRepo: records,
	})
	return New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      fix.Node(),
		Clock:      clk,
		Projects:   projectrepo.Provide(),
		Resources:  resourcerepo.Provide(),
		RateTiers:  ratetierrepo.Provide(),
		Records:    records,
		InvoiceSvc: invoiceSvc,
	})
}

func payload(hours int64) billingrecorddomain.Payload {
	return billingrecorddomain.Payload{
		Hours:             decimal.NewFromInt(hours),
		ProductivityLevel: ratetierdomain.LevelMedium,
		Rate:              decimal.NewFromInt(20),
		FlatRate:          decimal.NewFromInt(40),
		Costing:           decimal.NewFromInt(hours * 20),
		TotalAmount:       decimal.NewFromInt(hours * 40),
		Description:       "indexing",
		BillableStatus:    billingrecorddomain.StatusBillable,
		Month:             9,
		Year:              2025,
	}
}

func TestStoreRequiresOrganization(t *testing.T) {
	db := testutil.OpenDB(t)
	fix := testutil.NewFixtures(t, db)
	store := newTestStore(t, db, fix)

	_, err := store.ListAllResources(context.Background())
	assert.ErrorIs(t, err, ErrInvalidOrganization)
}

func TestListLocationsSkipsDeletedProjects(t *testing.T) {
	db := testutil.OpenDB(t)
	fix := testutil.NewFixtures(t, db)
	store := newTestStore(t, db, fix)
	ctx := testutil.OrgContext(fix.OrgID)

	verisma := fix.Project("Release of Information", "Verisma")
	mro := fix.Project("Records Retrieval", "MRO")
	fix.Location(verisma.ID, "Austin", 40)
	gone := fix.Location(mro.ID, "Denver", 35)
	fix.DeleteProject(mro.ID)

	items, err := store.ListLocations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Austin", items[0].Name)
	assert.Equal(t, "Release of Information", items[0].ProjectName)
	assert.True(t, items[0].FlatRate.Equal(decimal.NewFromInt(40)))

	loc, err := store.GetLocation(ctx, gone.ID)
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestListRateTiersOrdersByLevel(t *testing.T) {
	db := testutil.OpenDB(t)
	fix := testutil.NewFixtures(t, db)
	store := newTestStore(t, db, fix)
	ctx := testutil.OrgContext(fix.OrgID)

	p := fix.Project("Release of Information", "Verisma")
	l := fix.Location(p.ID, "Austin", 40)
	fix.Rates(l.ID, testutil.StandardRates())

	rates, err := store.ListRateTiers(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, rates, 4)
	assert.Equal(t, []ratetierdomain.ProductivityLevel{
		ratetierdomain.LevelLow, ratetierdomain.LevelMedium, ratetierdomain.LevelHigh, ratetierdomain.LevelBest,
	}, []ratetierdomain.ProductivityLevel{rates[0].Level, rates[1].Level, rates[2].Level, rates[3].Level})
	assert.True(t, rates[2].BaseRate.Equal(decimal.NewFromInt(25)))
}

func TestResourcesByLocationReflectAssignments(t *testing.T) {
	db := testutil.OpenDB(t)
	fix := testutil.NewFixtures(t, db)
	store := newTestStore(t, db, fix)
	ctx := testutil.OrgContext(fix.OrgID)

	p := fix.Project("Release of Information", "Verisma")
	austin := fix.Location(p.ID, "Austin", 40)
	dallas := fix.Location(p.ID, "Dallas", 42)
	ana := fix.Resource("Ana", "Coder", austin.ID, dallas.ID)
	fix.Resource("Ben", "QA", dallas.ID)

	items, err := store.ListResourcesByLocation(ctx, austin.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ana.ID, items[0].ID)
	assert.Len(t, items[0].Assignments, 2)

	fix.Unassign(ana.ID, austin.ID)
	items, err = store.ListResourcesByLocation(ctx, austin.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	all, err := store.ListAllResources(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateAndUpdateBillingRecord(t *testing.T) {
	db := testutil.OpenDB(t)
	fix := testutil.NewFixtures(t, db)
	store := newTestStore(t, db, fix)
	ctx := testutil.OrgContext(fix.OrgID)

	p := fix.Project("Release of Information", "Verisma")
	l := fix.Location(p.ID, "Austin", 40)
	r := fix.Resource("Ana", "Coder", l.ID)

	body := payload(8)
	body.LocationID, body.ResourceID = l.ID, r.ID

	id, err := store.CreateBillingRecord(ctx, body)
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = store.CreateBillingRecord(ctx, body)
	assert.ErrorIs(t, err, billingrecorddomain.ErrDuplicate)

	body.Hours = decimal.NewFromInt(10)
	body.Description = "indexing + QA"
	require.NoError(t, store.UpdateBillingRecord(ctx, id, body))

	records, err := store.ListBillingRecords(ctx, billingrecorddomain.Query{LocationID: l.ID, Month: 9, Year: 2025})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.True(t, records[0].Hours.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "indexing + QA", records[0].Description)
	assert.Equal(t, "Ana", records[0].ResourceName)
	assert.True(t, records[0].InPeriod(9, 2025))

	err = store.UpdateBillingRecord(ctx, fix.Node().Generate(), body)
	assert.ErrorIs(t, err, billingrecorddomain.ErrNotFound)
}

func TestCreateBillingRecordValidatesPayload(t *testing.T) {
	db := testutil.OpenDB(t)
	fix := testutil.NewFixtures(t, db)
	store := newTestStore(t, db, fix)
	ctx := testutil.OrgContext(fix.OrgID)

	body := payload(8)
	_, err := store.CreateBillingRecord(ctx, body)
	assert.ErrorIs(t, err, billingrecorddomain.ErrInvalidPayload)

	body.LocationID, body.ResourceID = fix.Node().Generate(), fix.Node().Generate()
	body.Hours = decimal.NewFromInt(-1)
	_, err = store.CreateBillingRecord(ctx, body)
	assert.ErrorIs(t, err, billingrecorddomain.ErrInvalidPayload)

	body.Hours = decimal.NewFromInt(1)
	body.Month = 13
	_, err = store.CreateBillingRecord(ctx, body)
	assert.ErrorIs(t, err, billingrecorddomain.ErrInvalidPeriod)
}

func TestListBillingRecordsTemplates(t *testing.T) {
	db := testutil.OpenDB(t)
	fix := testutil.NewFixtures(t, db)
	store := newTestStore(t, db, fix)
	ctx := testutil.OrgContext(fix.OrgID)

	p := fix.Project("Release of Information", "Verisma")
	l := fix.Location(p.ID, "Austin", 40)
	ana := fix.Resource("Ana", "Coder", l.ID)
	ben := fix.Resource("Ben", "QA", l.ID)
	fix.Record(l.ID, ana.ID, 4, ratetierdomain.LevelHigh, 0, 0)
	fix.Record(l.ID, ben.ID, 6, ratetierdomain.LevelLow, 9, 2025)
	fix.Record(l.ID, ben.ID, 2, ratetierdomain.LevelLow, 8, 2025)
	fix.DeleteResource(ben.ID)

	withTemplates, err := store.ListBillingRecords(ctx, billingrecorddomain.Query{LocationID: l.ID, Month: 9, Year: 2025, IncludeTemplates: true})
	require.NoError(t, err)
	assert.Len(t, withTemplates, 2)

	periodOnly, err := store.ListBillingRecords(ctx, billingrecorddomain.Query{Month: 9, Year: 2025})
	require.NoError(t, err)
	require.Len(t, periodOnly, 1)
	assert.Equal(t, ben.ID, periodOnly[0].ResourceID)
	assert.Empty(t, periodOnly[0].ResourceName)
}

func TestCreateInvoice(t *testing.T) {
	db := testutil.OpenDB(t)
	fix := testutil.NewFixtures(t, db)
	store := newTestStore(t, db, fix)
	ctx := testutil.OrgContext(fix.OrgID)

	p := fix.Project("Release of Information", "Verisma")
	l := fix.Location(p.ID, "Austin", 40)
	ana := fix.Resource("Ana", "Coder", l.ID)
	ben := fix.Resource("Ben", "QA", l.ID)

	first := payload(8)
	first.LocationID, first.ResourceID = l.ID, ana.ID
	second := payload(5)
	second.LocationID, second.ResourceID = l.ID, ben.ID

	id1, err := store.CreateBillingRecord(ctx, first)
	require.NoError(t, err)
	id2, err := store.CreateBillingRecord(ctx, second)
	require.NoError(t, err)

	created, err := store.CreateInvoice(ctx, invoicedomain.CreateRequest{
		BillingRecordIDs: []snowflake.ID{id1, id2, id1},
		Month:            9,
		Year:             2025,
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-202509-00001", created.InvoiceNumber)

	next, err := store.CreateInvoice(ctx, invoicedomain.CreateRequest{BillingRecordIDs: []snowflake.ID{id2}, Month: 9, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, "INV-202509-00002", next.InvoiceNumber)

	_, err = store.CreateInvoice(ctx, invoicedomain.CreateRequest{BillingRecordIDs: []snowflake.ID{id1}, Month: 8, Year: 2025})
	assert.ErrorIs(t, err, invoicedomain.ErrPeriodMismatch)

	_, err = store.CreateInvoice(ctx, invoicedomain.CreateRequest{BillingRecordIDs: []snowflake.ID{fix.Node().Generate()}, Month: 9, Year: 2025})
	assert.ErrorIs(t, err, invoicedomain.ErrUnknownRecord)

	_, err = store.CreateInvoice(ctx, invoicedomain.CreateRequest{Month: 9, Year: 2025})
	assert.ErrorIs(t, err, invoicedomain.ErrEmptyInvoice)

	invoice, err := store.invoiceSvc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	require.Len(t, invoice.Items, 2)
	assert.True(t, invoice.TotalHours.Equal(decimal.NewFromInt(13)))
	assert.True(t, invoice.TotalCosting.Equal(decimal.NewFromInt(260)))
	assert.True(t, invoice.TotalAmount.Equal(decimal.NewFromInt(520)))
}
