// Package report renders the latest reading of every device.
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/telemetry"
	"codeberg.org/mutker/wattlog/internal/uplink"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"

	heading   = "Latest Logged Data:"
	header    = "| Timestamp           | Appliance | Power (W) | Energy (kWh) |     Status      |"
	rowFormat = "| %-19s |     %2d     | %8.2f |     %6.3f   | %-15s |\n"
)

var rule = strings.Repeat("-", 85)

// Source is the read side of the store.
type Source interface {
	LatestPerDevice(ctx context.Context) ([]telemetry.Reading, error)
}

// Write loads the latest readings from src and renders them in format.
func Write(ctx context.Context, w io.Writer, src Source, format string) error {
	readings, err := src.LatestPerDevice(ctx)
	if err != nil {
		return err
	}

	switch format {
	case FormatTable, "":
		return Table(w, readings)
	case FormatJSON:
		return JSON(w, readings)
	default:
		return errors.New().WithData(errors.ErrInvalidArgument, "unknown report format "+format)
	}
}

// Table writes the fixed-width table, one row per reading in the order given.
func Table(w io.Writer, readings []telemetry.Reading) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, heading)
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw, header)
	fmt.Fprintln(bw, rule)
	for _, r := range readings {
		fmt.Fprintf(bw, rowFormat, r.Timestamp, r.DeviceID, r.Power, r.Energy, r.Status)
	}
	fmt.Fprintln(bw, rule)

	return bw.Flush()
}

// JSON writes the readings in the upload wire format.
func JSON(w io.Writer, readings []telemetry.Reading) error {
	data, err := uplink.Encode(readings)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
