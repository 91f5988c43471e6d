package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/inktoons/inktoons/app/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PaymentIntent{}))
	return db
}

func TestMarkCompletedPromotesApprovedRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentRepository(db)

	require.NoError(t, repo.Create(&models.PaymentIntent{
		UserID:    7,
		PaymentID: "p-approved",
		Amount:    3.0,
		State:     models.PaymentStateApproved,
	}))

	first, stored, err := repo.MarkCompleted(7, "p-approved", "tx-1")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, models.PaymentStateCompleted, stored.State)
	assert.Equal(t, "tx-1", stored.TxID)
	require.NotNil(t, stored.CompletedAt)
	// The credit is recorded by the caller after the ledger mutation landed.
	assert.False(t, stored.Credited)

	second, _, err := repo.MarkCompleted(7, "p-approved", "tx-1")
	require.NoError(t, err)
	assert.False(t, second, "a completed row must not be won twice")
}

func TestMarkCompletedInsertsUnknownPayment(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentRepository(db)

	first, stored, err := repo.MarkCompleted(3, "p-fresh", "tx-9")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, models.PaymentStateCompleted, stored.State)
	assert.False(t, stored.Credited)

	second, stored, err := repo.MarkCompleted(3, "p-fresh", "tx-9")
	require.NoError(t, err)
	assert.False(t, second)
	assert.Equal(t, uint(3), stored.UserID)
}
