package donorrepo

import (
	"testing"

	"github.com/plateshare/foodbank-api/internal/adapters/contracttest"
	donorrepoport "github.com/plateshare/foodbank-api/internal/ports/out/donorrepo"
)

func TestContract_MemoryDonorRepo(t *testing.T) {
	contracttest.RunDonorRepo(t, func(t *testing.T) (donorrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
