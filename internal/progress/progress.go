// Package progress предоставляет прогресс-бар для пакетных операций над файлами.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Bar - прогресс-бар со счётчиками успешных и неудачных файлов.
// Безопасен для использования из нескольких горутин.
type Bar struct {
	bar *progressbar.ProgressBar

	// mu защищает bar и счётчики.
	mu sync.Mutex

	disabled bool
	done     int64
	failed   int64
	start    time.Time
	writer   io.Writer
}

// Options содержит настройки прогресс-бара.
type Options struct {
	// Total - общее количество файлов.
	Total int64

	// Description - подпись слева от полосы.
	Description string

	// Disabled - только текстовый вывод сообщений.
	Disabled bool

	// Writer - куда выводить (по умолчанию os.Stderr).
	Writer io.Writer
}

// New создаёт прогресс-бар.
func New(opts Options) *Bar {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	b := &Bar{
		disabled: opts.Disabled || opts.Total <= 0,
		start:    time.Now(),
		writer:   writer,
	}
	if b.disabled {
		return b
	}

	description := opts.Description
	if description == "" {
		description = "Обработка"
	}

	b.bar = progressbar.NewOptions64(
		opts.Total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("файл"),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[cyan]█[reset]",
			SaucerHead:    "[cyan]▓[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(writer)
		}),
		progressbar.OptionSetPredictTime(true),
	)
	return b
}

// Done отмечает успешно обработанный файл.
func (b *Bar) Done() {
	b.add(false)
}

// Failed отмечает файл с ошибкой.
func (b *Bar) Failed() {
	b.add(true)
}

func (b *Bar) add(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if failed {
		b.failed++
	} else {
		b.done++
	}
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

// Finish завершает прогресс-бар.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// Counts возвращает количество успешных и неудачных файлов.
func (b *Bar) Counts() (done, failed int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done, b.failed
}

// Duration возвращает время с момента создания.
func (b *Bar) Duration() time.Duration {
	return time.Since(b.start)
}

// IsDisabled возвращает true, если полоса не рисуется.
func (b *Bar) IsDisabled() bool {
	return b.disabled
}

// WriteMessage выводит сообщение, временно скрывая полосу.
func (b *Bar) WriteMessage(format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Clear()
	}

	fmt.Fprintf(b.writer, format, args...)

	if b.bar != nil {
		_ = b.bar.RenderBlank()
	}
}
