package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inner struct {
	Size    int     `env:"TEST_SIZE"`
	Enabled bool    `env:"TEST_ENABLED"`
	Ratio   float64 `env:"TEST_RATIO"`
}

type outer struct {
	Name    string        `env:"TEST_NAME,required"`
	Timeout time.Duration `env:"TEST_TIMEOUT"`
	Skipped string        `env:"-"`
	Inner   inner
	hidden  string
}

func TestMarshal(t *testing.T) {
	c := &outer{
		Name:    "tusk",
		Timeout: 90 * time.Second,
		Skipped: "x",
		Inner:   inner{Size: 10, Ratio: 0.75},
		hidden:  "y",
	}

	got, err := Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"TEST_NAME":    "tusk",
		"TEST_TIMEOUT": "1m30s",
		"TEST_SIZE":    "10",
		"TEST_ENABLED": "false",
		"TEST_RATIO":   "0.75",
	}, got)
}

func TestMarshal_NotStruct(t *testing.T) {
	_, err := Marshal(outer{})
	assert.ErrorIs(t, err, ErrNotStruct)

	n := 3
	_, err = Marshal(&n)
	assert.ErrorIs(t, err, ErrNotStruct)
}
