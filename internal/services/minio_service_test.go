package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovementExportKey(t *testing.T) {
	at := time.Date(2025, time.March, 7, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "exports/movements/2025/03/07/20250307T140509Z.csv", MovementExportKey(at))
}

func TestMovementExportKey_ConvertsToUTC(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*3600)
	at := time.Date(2025, time.March, 7, 22, 0, 0, 0, zone)
	assert.Equal(t, "exports/movements/2025/03/08/20250308T030000Z.csv", MovementExportKey(at))
}

func TestNewMinioReportStorage(t *testing.T) {
	storage, err := NewMinioReportStorage("localhost:9000", "access", "secret", "relief-exports", false)
	require.NoError(t, err)
	assert.NotNil(t, storage)
}
