// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines readings, threshold versions, care team, alerts and suggestions.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		value REAL NOT NULL,
		unit TEXT NOT NULL,
		food_notes TEXT NOT NULL DEFAULT '',
		activity_notes TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS threshold_sets (
		id TEXT PRIMARY KEY,
		version INTEGER NOT NULL UNIQUE,
		normal_low REAL NOT NULL,
		normal_high REAL NOT NULL,
		borderline_low REAL NOT NULL,
		borderline_high REAL NOT NULL,
		abnormal_low REAL NOT NULL,
		abnormal_high REAL NOT NULL,
		effective_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS patient_overrides (
		patient_id TEXT PRIMARY KEY,
		normal_low REAL NOT NULL,
		normal_high REAL NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS specialist_assignments (
		patient_id TEXT PRIMARY KEY,
		specialist_id TEXT NOT NULL,
		assigned_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		specialist_id TEXT,
		week_start TEXT NOT NULL,
		abnormal_count INTEGER NOT NULL,
		message TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (patient_id, week_start)
	);

	CREATE TABLE IF NOT EXISTS alert_deliveries (
		alert_id TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		role TEXT NOT NULL,
		channel TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (alert_id, recipient_id, channel),
		FOREIGN KEY (alert_id) REFERENCES alerts(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS suggestions (
		patient_id TEXT NOT NULL,
		trigger_token TEXT NOT NULL,
		occurrences INTEGER NOT NULL,
		percent REAL NOT NULL,
		time_of_day TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		PRIMARY KEY (patient_id, trigger_token)
	);

	CREATE INDEX IF NOT EXISTS idx_readings_patient_recorded ON readings(patient_id, recorded_at DESC);
	CREATE INDEX IF NOT EXISTS idx_readings_patient_category ON readings(patient_id, category, recorded_at);
	CREATE INDEX IF NOT EXISTS idx_threshold_sets_effective ON threshold_sets(effective_at DESC, version DESC);
	CREATE INDEX IF NOT EXISTS idx_alerts_patient ON alerts(patient_id, week_start DESC);
	`

	_, err := d.db.Exec(schema)
	return err
}
