package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
)

func TestItemConditionIsNew(t *testing.T) {
	assert.True(t, domain.ConditionNew.IsNew())
	assert.True(t, domain.ItemCondition("").IsNew())
	assert.False(t, domain.ConditionUsed.IsNew())
	assert.False(t, domain.ConditionDamaged.IsNew())
	assert.False(t, domain.ConditionDefective.IsNew())
}

func TestGoodsIssueItemEffectiveQuantity(t *testing.T) {
	item := &domain.GoodsIssueItem{RequestedQuantity: dec("5")}
	assert.True(t, item.EffectiveQuantity().Equal(dec("5")))

	issued := dec("3")
	item.IssuedQuantity = &issued
	assert.True(t, item.EffectiveQuantity().Equal(dec("3")))

	// a recorded zero falls back to the request
	zero := dec("0")
	item.IssuedQuantity = &zero
	assert.True(t, item.EffectiveQuantity().Equal(dec("5")))
}

func TestWarehouseTransferItemReceiveQuantity(t *testing.T) {
	item := &domain.WarehouseTransferItem{
		RequestedQuantity:  dec("10"),
		DispatchedQuantity: dec("8"),
	}
	assert.True(t, item.ReceiveQuantity().Equal(dec("8")))

	item.DispatchedQuantity = dec("0")
	assert.True(t, item.ReceiveQuantity().Equal(dec("10")))
}
