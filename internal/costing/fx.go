package costing

import (
	"github.com/smallbiznis/costing/internal/billingstore"
	costingdomain "github.com/smallbiznis/costing/internal/costing/domain"
	"github.com/smallbiznis/costing/internal/costing/guard"
	"github.com/smallbiznis/costing/internal/costing/service"
	"github.com/smallbiznis/costing/internal/costing/session"
	"go.uber.org/fx"
)

var Module = fx.Module("costing",
	fx.Provide(
		provideBillingStore,
		provideSessionLoader,
		guard.NewRedisClient,
		guard.New,
		service.NewService,
		session.NewManager,
	),
	fx.Invoke(session.RegisterJanitor),
)

func provideBillingStore(s *billingstore.Store) costingdomain.BillingStore {
	return s
}

func provideSessionLoader(s *billingstore.Store) session.Loader {
	return s
}
