package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
)

func TestAlertRuleDedupeWindow(t *testing.T) {
	rule := &domain.AlertRule{}
	assert.Equal(t, time.Hour, rule.DedupeWindow(time.Hour))

	sec := 900
	rule.DedupeWindowSec = &sec
	assert.Equal(t, 15*time.Minute, rule.DedupeWindow(time.Hour))

	zero := 0
	rule.DedupeWindowSec = &zero
	assert.Equal(t, time.Hour, rule.DedupeWindow(time.Hour))
}

func TestAlertRuleExpiryWindow(t *testing.T) {
	rule := &domain.AlertRule{}
	assert.Equal(t, 30, rule.ExpiryWindow(30))

	days := 7
	rule.WindowDays = &days
	assert.Equal(t, 7, rule.ExpiryWindow(30))

	negative := -1
	rule.WindowDays = &negative
	assert.Equal(t, 30, rule.ExpiryWindow(30))
}
