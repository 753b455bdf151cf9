package ticket

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nothingTaken(string) (bool, error) {
	return false, nil
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "00001", Format(1))
	assert.Equal(t, "00042", Format(42))
	assert.Equal(t, "99999", Format(99999))
}

func TestDrawDistinctCodes(t *testing.T) {
	codes, err := Draw(50, 1000, nothingTaken)
	require.NoError(t, err)
	require.Len(t, codes, 50)

	pattern := regexp.MustCompile(`^\d{5}$`)
	seen := make(map[string]struct{})
	for _, code := range codes {
		assert.Regexp(t, pattern, code)
		_, dup := seen[code]
		assert.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
}

func TestDrawSkipsTakenCodes(t *testing.T) {
	// Pool of 10 with 1..8 taken leaves exactly 00009 and 00010.
	taken := func(code string) (bool, error) {
		return code < "00009", nil
	}

	codes, err := Draw(2, 10, taken)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"00009", "00010"}, codes)
}

func TestDrawPoolExhausted(t *testing.T) {
	everythingTaken := func(string) (bool, error) {
		return true, nil
	}

	_, err := Draw(1, 10, everythingTaken)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestDrawMoreThanPool(t *testing.T) {
	_, err := Draw(11, 10, nothingTaken)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestDrawProbeError(t *testing.T) {
	probeErr := errors.New("connection reset")
	failing := func(string) (bool, error) {
		return false, probeErr
	}

	_, err := Draw(3, 100, failing)
	assert.ErrorIs(t, err, probeErr)
}
