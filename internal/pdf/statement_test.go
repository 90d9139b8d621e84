package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyfairy/storyfairy-api/internal/models"
)

func sampleTransactions(n int) []models.CreditTransaction {
	txs := make([]models.CreditTransaction, n)
	for i := range txs {
		txs[i] = models.CreditTransaction{
			ID:          "tx",
			UserID:      "u1",
			Amount:      -5,
			Type:        models.TxTypeDeduction,
			Description: "Story generation",
			CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		}
	}
	return txs
}

func TestRenderStatement_ProducesPDF(t *testing.T) {
	data, err := RenderStatement("user-12345678", 42, sampleTransactions(3))

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRenderStatement_EmptyLedger(t *testing.T) {
	data, err := RenderStatement("u1", 15, nil)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRenderStatement_ManyRowsPaginate(t *testing.T) {
	// Enough rows to spill onto a second page without erroring.
	data, err := RenderStatement("u1", 0, sampleTransactions(80))

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestMaskID(t *testing.T) {
	assert.Equal(t, "short", maskID("short"))
	assert.Equal(t, "12345678", maskID("12345678"))
	assert.Equal(t, "1234...6789", maskID("123456789"))
}

func TestTrimTo(t *testing.T) {
	assert.Equal(t, "short", trimTo("short", 10))
	long := "this description is far far far too long for one table cell"
	trimmed := trimTo(long, 20)
	assert.LessOrEqual(t, len(trimmed), 23)
	assert.Contains(t, trimmed, "...")
}
