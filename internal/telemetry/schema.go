package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/logger"
	"github.com/jmoiron/sqlx"
)

const (
	tableName = "energy_data"

	createTableSQL = `
	   CREATE TABLE IF NOT EXISTS energy_data (
	       id                INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp         TEXT,
	       appliance_id      INTEGER,
	       power_consumption REAL,
	       cumulative_energy REAL,
	       status            TEXT NOT NULL
	   )`

	// Tables created by the first logger release have no status column.
	addStatusColumnSQL = `ALTER TABLE energy_data ADD COLUMN status TEXT NOT NULL DEFAULT 'OK'`

	insertReadingSQL = `
    INSERT INTO energy_data (
        timestamp, appliance_id, power_consumption, cumulative_energy, status
    ) VALUES (?, ?, ?, ?, ?)`

	selectRecentSQL = `
    SELECT id, timestamp, appliance_id, power_consumption, cumulative_energy, status
    FROM energy_data
    ORDER BY id DESC
    LIMIT ?`

	selectLatestPerDeviceSQL = `
    SELECT id, timestamp, appliance_id, power_consumption, cumulative_energy, status
    FROM energy_data
    WHERE id IN (
        SELECT MAX(id) FROM energy_data GROUP BY appliance_id
    )
    ORDER BY appliance_id`

	pruneSQL = `
    DELETE FROM energy_data
    WHERE id NOT IN (
        SELECT id FROM energy_data ORDER BY id DESC LIMIT ?
    )`

	countSQL = `SELECT COUNT(*) FROM energy_data`
)

// initSchema creates the energy_data table, or adds the status column to a
// table written by an older logger.
func initSchema(db *sqlx.DB, log logger.Logger) error {
	errFactory := errors.New()

	exists, err := tableExists(db, tableName)
	if err != nil {
		return err
	}

	if !exists {
		log.Debug().Msg("Creating energy_data table...")
		if _, err := db.Exec(createTableSQL); err != nil {
			return errFactory.WithData(ErrSchemaInitFailed, struct {
				Phase string
				Error string
			}{
				Phase: "create_table",
				Error: err.Error(),
			})
		}
		log.Info().Str("table", tableName).Msg("Schema initialized")
		return nil
	}

	hasStatus, err := columnExists(db, tableName, "status")
	if err != nil {
		return err
	}
	if hasStatus {
		return nil
	}

	if _, err := db.Exec(addStatusColumnSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Phase string
			Error string
		}{
			Phase: "add_status_column",
			Error: err.Error(),
		})
	}
	log.Info().Str("table", tableName).Msg("Added status column to existing table")

	return nil
}

// tableExists checks if a table exists
func tableExists(db *sqlx.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, name).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaInitFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: name,
			Error: err.Error(),
		})
	}
	return exists, nil
}

type columnInfo struct {
	CID        int            `db:"cid"`
	Name       string         `db:"name"`
	Type       string         `db:"type"`
	NotNull    bool           `db:"notnull"`
	Default    sql.NullString `db:"dflt_value"`
	PrimaryKey int            `db:"pk"`
}

func columnExists(db *sqlx.DB, table, column string) (bool, error) {
	var cols []columnInfo
	if err := db.Select(&cols, "PRAGMA table_info("+table+")"); err != nil {
		return false, errors.New().WithData(ErrSchemaInitFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "table_info",
			Table: table,
			Error: err.Error(),
		})
	}

	for _, c := range cols {
		if c.Name == column {
			return true, nil
		}
	}
	return false, nil
}
