package recipientrepo

import (
	"testing"

	"github.com/plateshare/foodbank-api/internal/adapters/contracttest"
	recipientrepoport "github.com/plateshare/foodbank-api/internal/ports/out/recipientrepo"
)

func TestContract_MemoryRecipientRepo(t *testing.T) {
	contracttest.RunRecipientRepo(t, func(t *testing.T) (recipientrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
