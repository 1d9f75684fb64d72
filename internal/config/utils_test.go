package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Checks(t *testing.T) {
	assert := assert.New(t)

	ac := NewAnomalyCollector()

	neg := -3
	CheckNotNegative(ac, "neg", &neg, 7)
	assert.Equal(7, neg)

	zero := 0.0
	CheckPositive(ac, "zero", &zero, 1.5)
	assert.Equal(1.5, zero)

	lower := 1 * time.Second
	CheckNotLowerThan(ac, "lower", "target", &lower, 2*time.Second)
	assert.Equal(2*time.Second, lower)

	changed := 10
	CheckUnchanged(ac, "changed", &changed, 5)
	assert.Equal(5, changed)

	// Valid values are left untouched
	valid := 4
	CheckNotNegative(ac, "valid", &valid, 1)
	CheckPositive(ac, "valid", &valid, 1)
	CheckNotLowerThan(ac, "valid", "target", &valid, 4)
	CheckUnchanged(ac, "valid", &valid, 4)
	assert.Equal(4, valid)

	assert.Equal(4, ac.Len())

	fields := []string{}
	for anomaly := range ac.All() {
		fields = append(fields, anomaly.Field)
	}
	assert.Equal([]string{"neg", "zero", "lower", "changed"}, fields)
}

type testConfig struct {
	Value int
}

func (c *testConfig) Validate(ac *AnomalyCollector) {
	CheckPositive(ac, "Value", &c.Value, 1)
}

func Test_Validator(t *testing.T) {
	assert := assert.New(t)

	validator := NewValidator(newTestTelemetry())

	cfg := &testConfig{Value: -1}
	assert.Equal(1, validator.Validate(cfg))
	assert.Equal(1, cfg.Value)

	assert.Zero(validator.Validate(cfg))
}
