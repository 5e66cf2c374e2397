package donorrepo

import (
	"testing"

	"github.com/plateshare/foodbank-api/internal/adapters/contracttest"
	"github.com/plateshare/foodbank-api/internal/adapters/postgres/testutil"
	donorrepoport "github.com/plateshare/foodbank-api/internal/ports/out/donorrepo"
)

func TestContract_PostgresDonorRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunDonorRepo(t, func(t *testing.T) (donorrepoport.Repository, func()) {
		t.Helper()
		testutil.Truncate(t, pool)
		return NewRepo(pool), nil
	})
}
