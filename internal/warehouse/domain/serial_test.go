package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

func TestSerialEnsureAtBin(t *testing.T) {
	bin := "bin-1"
	other := "bin-2"

	sn := &domain.SerialNumber{
		SerialNumber: "SN-100",
		Status:       domain.SerialInStock,
		CurrentBinID: &bin,
	}
	assert.NoError(t, sn.EnsureAtBin(bin))

	sn.Status = domain.SerialReadyForUse
	assert.NoError(t, sn.EnsureAtBin(bin))

	sn.CurrentBinID = &other
	err := sn.EnsureAtBin(bin)
	require.Error(t, err)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)

	sn.CurrentBinID = nil
	assert.Error(t, sn.EnsureAtBin(bin))

	sn.Status = domain.SerialIssued
	sn.CurrentBinID = &bin
	assert.Error(t, sn.EnsureAtBin(bin))

	sn.Status = domain.SerialInTransit
	assert.Error(t, sn.EnsureAtBin(bin))
}

func TestSerialEnsureInTransit(t *testing.T) {
	sn := &domain.SerialNumber{SerialNumber: "SN-200", Status: domain.SerialInTransit}
	assert.NoError(t, sn.EnsureInTransit())

	sn.Status = domain.SerialInStock
	assert.Error(t, sn.EnsureInTransit())
}

func TestNextRepairState(t *testing.T) {
	next, err := domain.NextRepairState(domain.RepairWaitingProvider)
	require.NoError(t, err)
	assert.Equal(t, domain.RepairAtProvider, next)

	next, err = domain.NextRepairState(domain.RepairAtProvider)
	require.NoError(t, err)
	assert.Equal(t, domain.RepairReadyForUse, next)

	_, err = domain.NextRepairState(domain.RepairReadyForUse)
	assert.Error(t, err)
}
