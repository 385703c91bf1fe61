package billingstore

import (
	billingrecordrepo "github.com/smallbiznis/costing/internal/billingrecord/repository"
	projectrepo "github.com/smallbiznis/costing/internal/project/repository"
	ratetierrepo "github.com/smallbiznis/costing/internal/ratetier/repository"
	resourcerepo "github.com/smallbiznis/costing/internal/resource/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("billingstore",
	fx.Provide(
		projectrepo.Provide,
		resourcerepo.Provide,
		ratetierrepo.Provide,
		billingrecordrepo.Provide,
		New,
	),
)
