package settings

import (
	"context"
	"testing"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/testutil"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCommissionDefaultsUntilUpdated(t *testing.T) {
	defaults := models.CommissionPolicy{Type: models.CommissionPercentage, Value: 10}
	svc := NewSettingsService(testutil.NewSettingsRepo(), defaults, zap.NewNop())
	ctx := context.Background()

	got, err := svc.Commission(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults, got)

	fixed := models.CommissionPolicy{Type: models.CommissionFixed, Value: 75}
	doc, err := svc.UpdateCommission(ctx, fixed)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionSettingsKey, doc.Key)

	got, err = svc.Commission(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixed, got)
}

func TestUpdateCommissionValidates(t *testing.T) {
	svc := NewSettingsService(testutil.NewSettingsRepo(), models.CommissionPolicy{Type: models.CommissionPercentage, Value: 10}, zap.NewNop())
	for _, p := range []models.CommissionPolicy{
		{Type: models.CommissionPercentage, Value: 101},
		{Type: models.CommissionPercentage, Value: -1},
		{Type: models.CommissionFixed, Value: -5},
		{Type: "tiered", Value: 1},
	} {
		_, err := svc.UpdateCommission(context.Background(), p)
		require.Error(t, err)
		assert.Equal(t, utils.KindValidation, utils.KindOf(err))
	}
}
