package journal

// Event name constants (spec §6 "journal event kinds"). The install_*
// events are logged by the pipeline stages and migration_rollback by the
// catalog; nothing logs migration_applied. These are free-form strings in the journal table, not
// an enum enforced by the schema: a future hasp version may log new
// names without a migration.
const (
	EventInstallStarted    = "install_started"
	EventInstallSuccess    = "install_success"
	EventInstallFailed     = "install_failed"
	EventMigrationApplied  = "migration_applied"
	EventMigrationRollback = "migration_rollback"
)

// InstallStartedData is the payload for EventInstallStarted.
type InstallStartedData struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Version   string `json:"version"`
}

// InstallSuccessData is the payload for EventInstallSuccess.
type InstallSuccessData struct {
	Namespace string   `json:"namespace"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Binaries  []string `json:"binaries"`
}

// InstallFailedData is the payload for EventInstallFailed.
type InstallFailedData struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Reason    string `json:"reason"`
}

// MigrationRollbackData is the payload for EventMigrationRollback,
// listing every migration applied earlier in the same run before the
// failure.
type MigrationRollbackData struct {
	AppliedThisRun []string `json:"applied_this_run"`
	Error          string   `json:"error"`
}
