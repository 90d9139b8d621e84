package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreditsForAmount_KnownPackages(t *testing.T) {
	assert.Equal(t, int64(10), CreditsForAmount(199))
	assert.Equal(t, int64(25), CreditsForAmount(399))
	assert.Equal(t, int64(60), CreditsForAmount(799))
}

func TestCreditsForAmount_UnknownAmountGrantsNothing(t *testing.T) {
	assert.Equal(t, int64(0), CreditsForAmount(0))
	assert.Equal(t, int64(0), CreditsForAmount(100))
	assert.Equal(t, int64(0), CreditsForAmount(200))
}

func TestPackageByPriceID(t *testing.T) {
	pkg, ok := PackageByPriceID(CreditPackages[1].StripePriceID)
	assert.True(t, ok)
	assert.Equal(t, "popular", pkg.ID)

	_, ok = PackageByPriceID("price_unknown")
	assert.False(t, ok)
}
