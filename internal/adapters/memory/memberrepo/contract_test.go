package memberrepo_test

import (
	"testing"

	"github.com/crocebianca-ops/fleet-missions-api/internal/adapters/contracttest"
	memchecklist "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/checklistrepo"
	memmember "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/memberrepo"
	memmission "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/missionrepo"
	memvehicle "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/vehiclerepo"
)

func TestMemberRepoContract(t *testing.T) {
	contracttest.RunMemberRepo(t, func(t *testing.T) (contracttest.Stores, contracttest.CleanupFunc) {
		return contracttest.Stores{
			Vehicles:   memvehicle.NewRepo(),
			Members:    memmember.NewRepo(),
			Checklists: memchecklist.NewRepo(),
			Missions:   memmission.NewRepo(),
		}, nil
	})
}
