package uplink_test

import (
	"encoding/json"
	"testing"

	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/sensor"
	"codeberg.org/mutker/wattlog/internal/telemetry"
	"codeberg.org/mutker/wattlog/internal/uplink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBatch() []telemetry.Reading {
	return []telemetry.Reading{
		{ID: 3, Timestamp: "2024-05-01 12:00:05", DeviceID: 2, Power: 123.456, Energy: 0.123456, Status: sensor.StatusOK},
		{ID: 2, Timestamp: "2024-05-01 12:00:05", DeviceID: 1, Power: -1, Energy: -1, Status: sensor.StatusOverConsumption},
		{ID: 1, Timestamp: "2024-05-01 12:00:05", DeviceID: 0, Power: -1, Energy: -1, Status: sensor.StatusDisconnected},
	}
}

func TestEncodeWireFormat(t *testing.T) {
	data, err := uplink.Encode(sampleBatch()[:2])
	require.NoError(t, err)

	assert.Equal(t,
		`[{"timestamp":"2024-05-01 12:00:05","appliance_id":2,"power_consumption":123.46,"cumulative_energy":0.123,"status":"OK"},`+
			`{"timestamp":"2024-05-01 12:00:05","appliance_id":1,"power_consumption":-1.00,"cumulative_energy":-1.000,"status":"OVER_CONSUMPTION"}]`,
		string(data))
}

func TestEncodeKeepsExactFields(t *testing.T) {
	data, err := uplink.Encode(sampleBatch())
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 3)
	for _, obj := range raw {
		assert.Len(t, obj, 5)
		for _, key := range []string{"timestamp", "appliance_id", "power_consumption", "cumulative_energy", "status"} {
			assert.Contains(t, obj, key)
		}
	}
}

func TestEncodeEmptyBatch(t *testing.T) {
	data, err := uplink.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestRoundTrip(t *testing.T) {
	batch := sampleBatch()
	data, err := uplink.Encode(batch)
	require.NoError(t, err)

	records, err := uplink.Decode(data)
	require.NoError(t, err)
	require.Len(t, records, len(batch))

	for i, r := range records {
		assert.Equal(t, batch[i].Timestamp, r.Timestamp)
		assert.Equal(t, batch[i].DeviceID, r.ApplianceID)
		assert.Equal(t, batch[i].Status, r.Status)
		assert.InDelta(t, batch[i].Power, float64(r.Power), 0.005)
		assert.InDelta(t, batch[i].Energy, float64(r.Energy), 0.0005)
	}
}

func TestDecodeRejectsNonArray(t *testing.T) {
	for _, body := range []string{
		``,
		`null`,
		`{"timestamp":"x"}`,
		`[{"appliance_id":"one"}]`,
		`[{"timestamp":"2024-01-01 00:00:00","status":"BROKEN"}]`,
		`[{}]`,
		`[null]`,
		`[{"timestamp":"2024-01-01 00:00:00","status":"OK"},{"appliance_id":1}]`,
	} {
		_, err := uplink.Decode([]byte(body))
		assert.True(t, errors.HasCode(err, uplink.ErrDecodeFailed), body)
	}
}

func TestDecodeEmptyArray(t *testing.T) {
	records, err := uplink.Decode([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecodeLegacyStatus(t *testing.T) {
	records, err := uplink.Decode([]byte(`[{"timestamp":"2024-01-01 00:00:00","appliance_id":0,"power_consumption":-1,"cumulative_energy":-1,"status":"Device Not connected"}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, sensor.StatusDisconnected, records[0].Status)
}
