package server

import (
	"html/template"
	"strconv"

	"codeberg.org/mutker/wattlog/internal/uplink"
)

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Energy Monitor Dashboard</title>
    <meta charset="UTF-8">
    <meta http-equiv="refresh" content="5">
    <style>
        body { font-family: Arial; padding: 20px; background: #f0f0f0; }
        h1 { color: #333; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: center; }
        th { background-color: #f9b234; color: white; }
    </style>
</head>
<body>
    <h1>Energy Monitor Dashboard</h1>
    <table>
        <tr>
            <th>Timestamp</th>
            <th>Appliance ID</th>
            <th>Power (W)</th>
            <th>Cumulative Energy (kWh)</th>
            <th>Status</th>
        </tr>
        {{- range .}}
        <tr>
            <td>{{.Timestamp}}</td>
            <td>{{.ApplianceID}}</td>
            <td>{{.Power}}</td>
            <td>{{.Energy}}</td>
            <td>{{.Status}}</td>
        </tr>
        {{- end}}
    </table>
</body>
</html>
`))

type dashboardRow struct {
	Timestamp   string
	ApplianceID int
	Power       string
	Energy      string
	Status      string
}

func dashboardRows(records []uplink.Record) []dashboardRow {
	rows := make([]dashboardRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, dashboardRow{
			Timestamp:   r.Timestamp,
			ApplianceID: r.ApplianceID,
			Power:       strconv.FormatFloat(float64(r.Power), 'f', 2, 64),
			Energy:      strconv.FormatFloat(float64(r.Energy), 'f', 3, 64),
			Status:      r.Status.String(),
		})
	}
	return rows
}
