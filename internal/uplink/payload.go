package uplink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/sensor"
	"codeberg.org/mutker/wattlog/internal/telemetry"
)

// Watts is encoded with two fraction digits.
type Watts float64

func (w Watts) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(w), 'f', 2, 64), nil
}

// KWh is encoded with three fraction digits.
type KWh float64

func (k KWh) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(k), 'f', 3, 64), nil
}

// Record is one element of the upload array.
type Record struct {
	Timestamp   string        `json:"timestamp"`
	ApplianceID int           `json:"appliance_id"`
	Power       Watts         `json:"power_consumption"`
	Energy      KWh           `json:"cumulative_energy"`
	Status      sensor.Status `json:"status"`
}

func FromReading(r telemetry.Reading) Record {
	return Record{
		Timestamp:   r.Timestamp,
		ApplianceID: r.DeviceID,
		Power:       Watts(r.Power),
		Energy:      KWh(r.Energy),
		Status:      r.Status,
	}
}

// Records converts a batch preserving its order.
func Records(batch []telemetry.Reading) []Record {
	out := make([]Record, 0, len(batch))
	for _, r := range batch {
		out = append(out, FromReading(r))
	}
	return out
}

// Encode renders the batch as a JSON array in the order given.
func Encode(batch []telemetry.Reading) ([]byte, error) {
	return EncodeRecords(Records(batch))
}

func EncodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, errors.Wrap(ErrEncodeFailed, err)
	}
	return data, nil
}

// Decode parses an upload body. Anything other than a JSON array of records
// is rejected, as is a null element or a record without a timestamp.
func Decode(data []byte) ([]Record, error) {
	errFactory := errors.New()

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errFactory.WithData(ErrDecodeFailed, "body is not a JSON array")
	}

	var decoded []*Record
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, errFactory.Wrap(ErrDecodeFailed, err)
	}

	records := make([]Record, 0, len(decoded))
	for i, r := range decoded {
		if r == nil || r.Timestamp == "" {
			return nil, errFactory.WithData(ErrDecodeFailed, fmt.Sprintf("record %d has no timestamp", i))
		}
		records = append(records, *r)
	}

	return records, nil
}
