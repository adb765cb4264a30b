// Package storage содержит модели и логику работы с SQLite журналом операций.
package storage

import "time"

// TransformStatus определяет статус трансформации.
type TransformStatus string

const (
	// StatusInProgress - трансформация выполняется.
	StatusInProgress TransformStatus = "in_progress"
	// StatusOK - трансформация успешно завершена.
	StatusOK TransformStatus = "ok"
	// StatusFailed - трансформация завершилась с ошибкой.
	StatusFailed TransformStatus = "failed"
)

// RenameRecord - запись о переименовании одного файла.
type RenameRecord struct {
	// ID - уникальный идентификатор записи.
	ID int64 `db:"id"`

	// BatchID - идентификатор пакета.
	BatchID string `db:"batch_id"`

	// OriginalPath - путь до переименования.
	OriginalPath string `db:"original_path"`

	// FinalPath - путь после переименования.
	FinalPath string `db:"final_path"`

	// Category - категория (материал).
	Category string `db:"category"`

	// BatchIndex - номер в пакете (с 1).
	BatchIndex int `db:"batch_index"`

	// Fingerprint - отпечаток содержимого.
	Fingerprint string `db:"fingerprint"`

	// SizeBytes - размер файла.
	SizeBytes int64 `db:"size_bytes"`

	// RenamedAt - время переименования.
	RenamedAt time.Time `db:"renamed_at"`
}

// TransformStart - параметры начинаемой трансформации.
type TransformStart struct {
	// SrcPath - исходный файл.
	SrcPath string

	// Mode - режим (crop, resize, pad, border, mirror).
	Mode string

	// Params - JSON с параметрами трансформации.
	Params string

	// Engine - имя растрового движка.
	Engine string
}

// TransformRecord - запись о трансформации.
type TransformRecord struct {
	ID         int64           `db:"id"`
	SrcPath    string          `db:"src_path"`
	Mode       string          `db:"mode"`
	Params     string          `db:"params"`
	ParamsHash string          `db:"params_hash"`
	Engine     string          `db:"engine"`
	DstPath    *string         `db:"dst_path"`
	Status     TransformStatus `db:"status"`
	Error      *string         `db:"error"`
	StartedAt  time.Time       `db:"started_at"`
	FinishedAt *time.Time      `db:"finished_at"`
}

// Stats - сводка по журналу.
type Stats struct {
	Renames              int64
	Batches              int64
	Transforms           int64
	TransformsOK         int64
	TransformsFailed     int64
	TransformsInProgress int64
}
