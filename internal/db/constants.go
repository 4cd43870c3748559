package db

const (
	// currentSchemaVersion is the schema version this build writes.
	currentSchemaVersion = 3

	metaSchemaVersion = "schema_version"
	metaMachineID     = "machine_id"
)
