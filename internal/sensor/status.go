package sensor

import (
	"database/sql/driver"
	"fmt"

	"codeberg.org/mutker/wattlog/internal/errors"
)

// Status is the health classification of one reading.
type Status int

const (
	StatusOK Status = iota
	StatusOverConsumption
	StatusDisconnected
)

var statusNames = map[Status]string{
	StatusOK:              "OK",
	StatusOverConsumption: "OVER_CONSUMPTION",
	StatusDisconnected:    "DISCONNECTED",
}

// Labels written by the first logger release.
var legacyStatusNames = map[string]Status{
	"Over Consumption Device Turned off": StatusOverConsumption,
	"Device Not connected":               StatusDisconnected,
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Faulted reports whether readings with this status carry sentinel values.
func (s Status) Faulted() bool {
	return s == StatusOverConsumption || s == StatusDisconnected
}

// ParseStatus maps a stored or transmitted label back to a Status.
func ParseStatus(label string) (Status, error) {
	for s, name := range statusNames {
		if name == label {
			return s, nil
		}
	}
	if s, ok := legacyStatusNames[label]; ok {
		return s, nil
	}

	return 0, errors.New().WithData(ErrUnknownStatus, label)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, errors.New().WithData(ErrUnknownStatus, int(s))
	}

	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed

	return nil
}

// Value stores the status as its label.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, errors.New().WithData(ErrUnknownStatus, int(s))
	}

	return s.String(), nil
}

// Scan reads a label column.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	case nil:
		return errors.New().WithData(ErrUnknownStatus, "NULL")
	}

	return errors.New().WithData(ErrUnknownStatus, fmt.Sprintf("%T", src))
}
