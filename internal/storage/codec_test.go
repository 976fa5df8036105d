package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockproj/internal/model"
)

func TestScenarioCodecRoundTrip(t *testing.T) {
	input := sampleScenario("cod")
	payload, err := EncodeScenario(input)
	require.NoError(t, err)

	output, err := DecodeScenario(payload)
	require.NoError(t, err)
	assert.Equal(t, input, output)
}

func TestRunCodecRoundTrip(t *testing.T) {
	input := sampleRun("r1", "cod", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	payload, err := EncodeRun(input)
	require.NoError(t, err)

	output, err := DecodeRun(payload)
	require.NoError(t, err)
	assert.True(t, input.CreatedAt.Equal(output.CreatedAt))
	output.CreatedAt = input.CreatedAt
	assert.Equal(t, input, output)
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	scenario := sampleScenario("cod")
	scenario.SchemaVersion = CurrentSchemaVersion + 1
	payload, err := EncodeScenario(scenario)
	require.NoError(t, err)
	_, err = DecodeScenario(payload)
	require.ErrorIs(t, err, ErrVersionMismatch)

	run := sampleRun("r1", "cod", time.Now())
	run.CodecVersion = 0
	payload, err = EncodeRun(run)
	require.NoError(t, err)
	_, err = DecodeRun(payload)
	require.ErrorIs(t, err, ErrVersionMismatch)

	payload, err = EncodeSensitivity([]model.SensitivityRecord{{Parameter: "trawl/log_fmort[0]"}})
	require.NoError(t, err)
	_, err = DecodeSensitivity(payload)
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	_, err := DecodeScenario([]byte("{"))
	require.Error(t, err)
	_, err = DecodeRun([]byte("[]"))
	require.Error(t, err)
}
