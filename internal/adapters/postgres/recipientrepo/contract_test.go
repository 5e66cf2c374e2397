package recipientrepo

import (
	"testing"

	"github.com/plateshare/foodbank-api/internal/adapters/contracttest"
	"github.com/plateshare/foodbank-api/internal/adapters/postgres/testutil"
	recipientrepoport "github.com/plateshare/foodbank-api/internal/ports/out/recipientrepo"
)

func TestContract_PostgresRecipientRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunRecipientRepo(t, func(t *testing.T) (recipientrepoport.Repository, func()) {
		t.Helper()
		testutil.Truncate(t, pool)
		return NewRepo(pool), nil
	})
}
