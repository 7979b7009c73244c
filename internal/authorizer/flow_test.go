package authorizer_test

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wishyapp/payments/internal/authorizer"
	"github.com/wishyapp/payments/internal/domain/checkout"
	derrors "github.com/wishyapp/payments/internal/domain/errors"
)

func testConfig() authorizer.Config {
	return authorizer.Config{
		MerchantID:        "merchant.wishy.newlive.sa.com",
		SupportedNetworks: []checkout.Network{checkout.NetworkVisa, checkout.NetworkMastercard, checkout.NetworkMada},
		CountryCode:       "SA",
		CurrencyCode:      "SAR",
		SummaryLabel:      "Wishy",
		ShopperResultURL:  "sa.com.wishy.payments://payment",
	}
}

func TestCheckCapability(t *testing.T) {
	cfg := testConfig()

	assert.NoError(t, cfg.CheckCapability([]checkout.Network{checkout.NetworkMada}))
	assert.NoError(t, cfg.CheckCapability([]checkout.Network{"amex", checkout.NetworkVisa}))

	err := cfg.CheckCapability([]checkout.Network{"amex", "discover"})
	assert.ErrorIs(t, err, derrors.ErrSheetUnsupported)

	err = cfg.CheckCapability(nil)
	assert.ErrorIs(t, err, derrors.ErrSheetUnsupported)
}

func TestBuildRequest_SingleSummaryLine(t *testing.T) {
	cfg := testConfig()
	req := cfg.BuildRequest(decimal.RequireFromString("149.9"))

	assert.Equal(t, "merchant.wishy.newlive.sa.com", req.MerchantID)
	assert.Equal(t, "SA", req.CountryCode)
	assert.Equal(t, "SAR", req.CurrencyCode)
	require.Len(t, req.SummaryItems, 1)
	assert.Equal(t, "Wishy", req.SummaryItems[0].Label)
	assert.Equal(t, "149.90", req.SummaryItems[0].Amount)
}

func TestFlow_HappyPath(t *testing.T) {
	f := authorizer.NewFlow("CO1")
	assert.Equal(t, authorizer.StateSheetPresented, f.State())

	require.NoError(t, f.BeginAuthorization())
	assert.Equal(t, authorizer.StateAuthorizing, f.State())

	won := f.Resolve(checkout.SuccessOutcome("CO1"))
	assert.True(t, won)
	assert.Equal(t, authorizer.StateResolved, f.State())

	out := f.Outcome()
	require.NotNil(t, out)
	assert.True(t, out.Success)
}

func TestFlow_DismissBeforeAuthorization(t *testing.T) {
	f := authorizer.NewFlow("CO1")

	out, won := f.Dismiss()
	assert.True(t, won)
	require.NotNil(t, out)
	assert.False(t, out.Success)
	assert.True(t, out.UserCancelled)
	assert.Equal(t, "payment sheet dismissed", out.FailureReason)
}

func TestFlow_DismissAfterSuccessIsDropped(t *testing.T) {
	f := authorizer.NewFlow("CO1")
	require.NoError(t, f.BeginAuthorization())
	require.True(t, f.Resolve(checkout.SuccessOutcome("CO1")))

	// The trailing sheet-dismissed callback must not produce a second
	// outcome or overwrite the success.
	out, won := f.Dismiss()
	assert.False(t, won)
	assert.Nil(t, out)

	latched := f.Outcome()
	require.NotNil(t, latched)
	assert.True(t, latched.Success)
}

func TestFlow_AuthorizationAfterDismissRejected(t *testing.T) {
	f := authorizer.NewFlow("CO1")
	_, won := f.Dismiss()
	require.True(t, won)

	err := f.BeginAuthorization()
	assert.ErrorIs(t, err, derrors.ErrFlowResolved)
}

func TestFlow_SecondResolveLoses(t *testing.T) {
	f := authorizer.NewFlow("CO1")
	require.True(t, f.Resolve(checkout.SuccessOutcome("CO1")))
	assert.False(t, f.Resolve(checkout.FailureOutcome("CO1", "late failure", false)))
	assert.True(t, f.Outcome().Success)
}

func TestFlow_ConcurrentResolveExactlyOneWinner(t *testing.T) {
	f := authorizer.NewFlow("CO1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var won bool
			if i%2 == 0 {
				won = f.Resolve(checkout.SuccessOutcome("CO1"))
			} else {
				_, won = f.Dismiss()
			}
			if won {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.NotNil(t, f.Outcome())
}

func TestManager_RegisterGetRemove(t *testing.T) {
	m := authorizer.NewManager()

	f, err := m.Register("CO1")
	require.NoError(t, err)
	assert.Equal(t, "CO1", f.CheckoutID())

	_, err = m.Register("CO1")
	assert.ErrorIs(t, err, derrors.ErrDuplicateAttempt)

	got, err := m.Get("CO1")
	require.NoError(t, err)
	assert.Same(t, f, got)

	m.Remove("CO1")
	_, err = m.Get("CO1")
	assert.ErrorIs(t, err, derrors.ErrFlowNotFound)
}
