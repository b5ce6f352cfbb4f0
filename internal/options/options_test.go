package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	value   int
	name    string
	enabled bool
}

func (c *testConfig) setValue(v int) error {
	if v < 0 {
		return errors.New("value cannot be negative")
	}
	c.value = v

	return nil
}

func TestNew(t *testing.T) {
	config := &testConfig{}

	opt := New(func(c *testConfig) error {
		return c.setValue(42)
	})
	require.NoError(t, opt.apply(config))
	require.Equal(t, 42, config.value)

	opt = New(func(c *testConfig) error {
		return c.setValue(-1)
	})
	require.Error(t, opt.apply(config))
	require.Equal(t, 42, config.value)
}

func TestNoError(t *testing.T) {
	config := &testConfig{}

	opt := NoError(func(c *testConfig) {
		c.name = "sensor"
	})
	require.NoError(t, opt.apply(config))
	require.Equal(t, "sensor", config.name)
}

func TestApply(t *testing.T) {
	config := &testConfig{}

	err := Apply(config,
		NoError(func(c *testConfig) { c.enabled = true }),
		New(func(c *testConfig) error { return c.setValue(7) }),
	)
	require.NoError(t, err)
	require.True(t, config.enabled)
	require.Equal(t, 7, config.value)
}

func TestApplyStopsAtFirstError(t *testing.T) {
	config := &testConfig{}

	err := Apply(config,
		New(func(c *testConfig) error { return c.setValue(-1) }),
		NoError(func(c *testConfig) { c.enabled = true }),
	)
	require.Error(t, err)
	require.False(t, config.enabled)
}
