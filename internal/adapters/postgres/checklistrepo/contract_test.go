package checklistrepo_test

import (
	"testing"

	"github.com/crocebianca-ops/fleet-missions-api/internal/adapters/contracttest"
	pgchecklist "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres/checklistrepo"
	pgmember "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres/memberrepo"
	pgmission "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres/missionrepo"
	"github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres/testutil"
	pgvehicle "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres/vehiclerepo"
)

func TestChecklistRepoContract(t *testing.T) {
	contracttest.RunChecklistRepo(t, func(t *testing.T) (contracttest.Stores, contracttest.CleanupFunc) {
		pool := testutil.OpenMigratedPool(t)
		return contracttest.Stores{
			Vehicles:   pgvehicle.NewRepo(pool),
			Members:    pgmember.NewRepo(pool),
			Checklists: pgchecklist.NewRepo(pool),
			Missions:   pgmission.NewRepo(pool),
		}, nil
	})
}
