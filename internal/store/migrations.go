package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Training examples in insertion order. seq defines the class index.
		`CREATE TABLE IF NOT EXISTS training_examples (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			label TEXT NOT NULL,
			symbols TEXT NOT NULL,
			acceptance_factor REAL NOT NULL CHECK(acceptance_factor > 0 AND acceptance_factor <= 1),
			calibrated_likelihood REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Actions executed through a plugin when a label is recognized
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_training_examples_label ON training_examples(label)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_label ON actions(label)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
