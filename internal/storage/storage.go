// Package storage содержит логику работы с SQLite журналом операций.
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrBusy - файл уже трансформируется другим процессом.
var ErrBusy = errors.New("файл уже обрабатывается")

// Storage предоставляет методы для работы с журналом.
type Storage struct {
	db *sql.DB
}

// New создаёт новое подключение к SQLite и выполняет миграции.
func New(dbPath string) (*Storage, error) {
	// Создаём директорию для БД, если не существует
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для БД: %w", err)
	}

	// Открываем/создаём БД с параметрами для concurrent доступа
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть БД: %w", err)
	}

	// Проверяем подключение
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}

	// SQLite не поддерживает concurrent writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Storage{db: db}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось выполнить миграции: %w", err)
	}

	return s, nil
}

// migrate выполняет все SQL-миграции.
func (s *Storage) migrate() error {
	for i, m := range GetMigrations() {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("миграция %d: %w", i+1, err)
		}
	}
	return nil
}

// Close закрывает подключение к БД.
func (s *Storage) Close() error {
	return s.db.Close()
}

// SchemaVersion возвращает версию схемы.
func (s *Storage) SchemaVersion(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM schema_info WHERE key = 'version'").Scan(&v)
	return v, err
}

// RecordRename записывает выполненное переименование.
func (s *Storage) RecordRename(ctx context.Context, rec *RenameRecord) error {
	if rec.RenamedAt.IsZero() {
		rec.RenamedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO renames (batch_id, original_path, final_path, category, batch_index,
		                     fingerprint, size_bytes, renamed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BatchID, rec.OriginalPath, rec.FinalPath, rec.Category, rec.BatchIndex,
		rec.Fingerprint, rec.SizeBytes, rec.RenamedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("не удалось записать переименование: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("не удалось получить ID записи: %w", err)
	}
	rec.ID = id
	return nil
}

const renameColumns = `id, batch_id, original_path, final_path, category, batch_index,
	fingerprint, size_bytes, renamed_at`

// ListRenames возвращает последние limit переименований, новые первыми.
// limit <= 0 означает без ограничения.
func (s *Storage) ListRenames(ctx context.Context, limit int) ([]RenameRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+renameColumns+" FROM renames ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать журнал: %w", err)
	}
	return scanRenames(rows)
}

// FindByFingerprint возвращает все переименования файлов с данным отпечатком.
func (s *Storage) FindByFingerprint(ctx context.Context, fp string) ([]RenameRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+renameColumns+" FROM renames WHERE fingerprint = ? ORDER BY id", fp)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать журнал: %w", err)
	}
	return scanRenames(rows)
}

func scanRenames(rows *sql.Rows) ([]RenameRecord, error) {
	defer func() { _ = rows.Close() }()

	var out []RenameRecord
	for rows.Next() {
		var r RenameRecord
		var renamedAt int64
		if err := rows.Scan(&r.ID, &r.BatchID, &r.OriginalPath, &r.FinalPath, &r.Category,
			&r.BatchIndex, &r.Fingerprint, &r.SizeBytes, &renamedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки журнала: %w", err)
		}
		r.RenamedAt = time.Unix(renamedAt, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// StartTransform создаёт запись in_progress.
// Возвращает ErrBusy, если этот файл уже трансформируется.
func (s *Storage) StartTransform(ctx context.Context, start TransformStart) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO transforms (src_path, mode, params, params_hash, engine, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		start.SrcPath, start.Mode, start.Params, HashParams(start.Params), start.Engine,
		StatusInProgress, time.Now().Unix(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, fmt.Errorf("%w: %s", ErrBusy, start.SrcPath)
		}
		return 0, fmt.Errorf("не удалось создать запись трансформации: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("не удалось получить ID записи: %w", err)
	}
	return id, nil
}

// FinalizeTransformOK помечает трансформацию как успешно завершённую.
func (s *Storage) FinalizeTransformOK(ctx context.Context, id int64, dstPath string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE transforms SET status = ?, dst_path = ?, finished_at = ? WHERE id = ?",
		StatusOK, dstPath, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("не удалось обновить статус трансформации: %w", err)
	}
	return nil
}

// FinalizeTransformFailed помечает трансформацию как завершённую с ошибкой.
func (s *Storage) FinalizeTransformFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE transforms SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		StatusFailed, errMsg, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("не удалось обновить статус трансформации: %w", err)
	}
	return nil
}

// GetTransform возвращает запись трансформации по ID.
func (s *Storage) GetTransform(ctx context.Context, id int64) (*TransformRecord, error) {
	var r TransformRecord
	var startedAt int64
	var finishedAt sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, src_path, mode, params, params_hash, engine, dst_path, status, error,
		       started_at, finished_at
		FROM transforms WHERE id = ?`, id).
		Scan(&r.ID, &r.SrcPath, &r.Mode, &r.Params, &r.ParamsHash, &r.Engine, &r.DstPath,
			&r.Status, &r.Error, &startedAt, &finishedAt)
	if err != nil {
		return nil, fmt.Errorf("трансформация %d: %w", id, err)
	}

	r.StartedAt = time.Unix(startedAt, 0)
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0)
		r.FinishedAt = &t
	}
	return &r, nil
}

// CleanupInProgress сбрасывает трансформации со статусом in_progress в failed.
// Вызывается при старте для очистки после аварийного завершения.
func (s *Storage) CleanupInProgress(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE transforms SET status = ?, error = ? WHERE status = ?",
		StatusFailed, "прервано при предыдущем запуске", StatusInProgress,
	)
	if err != nil {
		return 0, fmt.Errorf("не удалось очистить in_progress: %w", err)
	}
	return result.RowsAffected()
}

// GetStats возвращает сводку по журналу.
func (s *Storage) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT batch_id) FROM renames").Scan(&st.Renames, &st.Batches)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить статистику: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(status = 'ok'), 0),
		       COALESCE(SUM(status = 'failed'), 0),
		       COALESCE(SUM(status = 'in_progress'), 0)
		FROM transforms`).
		Scan(&st.Transforms, &st.TransformsOK, &st.TransformsFailed, &st.TransformsInProgress)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить статистику: %w", err)
	}
	return &st, nil
}

// HashParams возвращает sha256 параметров в hex.
func HashParams(params string) string {
	sum := sha256.Sum256([]byte(params))
	return hex.EncodeToString(sum[:])
}

// isUniqueConstraintError проверяет, является ли ошибка нарушением уникальности.
func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
