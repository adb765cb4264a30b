// Package storage содержит миграции SQLite базы данных.
package storage

// migrations содержит SQL-миграции в порядке выполнения.
var migrations = []string{
	// Миграция 1: Журнал переименований
	`CREATE TABLE IF NOT EXISTS renames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		original_path TEXT NOT NULL,
		final_path TEXT NOT NULL,
		category TEXT NOT NULL,
		batch_index INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		renamed_at INTEGER NOT NULL
	);`,

	// Миграция 2: Поиск по отпечатку из имени файла
	`CREATE INDEX IF NOT EXISTS ix_renames_fingerprint ON renames (fingerprint);`,

	// Миграция 3: Группировка по пакетам
	`CREATE INDEX IF NOT EXISTS ix_renames_batch ON renames (batch_id, batch_index);`,

	// Миграция 4: Журнал трансформаций
	`CREATE TABLE IF NOT EXISTS transforms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		src_path TEXT NOT NULL,
		mode TEXT NOT NULL,
		params TEXT NOT NULL,
		params_hash TEXT NOT NULL,
		engine TEXT NOT NULL,
		dst_path TEXT,
		status TEXT NOT NULL,
		error TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);`,

	// Миграция 5: Один файл не трансформируется двумя процессами одновременно
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_transforms_active
	ON transforms (src_path) WHERE status = 'in_progress';`,

	// Миграция 6: Индекс для быстрого поиска по статусу
	`CREATE INDEX IF NOT EXISTS ix_transforms_status ON transforms (status);`,

	// Миграция 7: Таблица метаданных для версионирования схемы
	`CREATE TABLE IF NOT EXISTS schema_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,

	// Миграция 8: Запись версии схемы
	`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', '1');`,
}

// GetMigrations возвращает список SQL-миграций.
func GetMigrations() []string {
	return migrations
}
