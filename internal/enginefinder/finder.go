// Package enginefinder отвечает за поиск бинарника ImageMagick в системе.
package enginefinder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// EnvVar - переменная окружения с путём к magick.
const EnvVar = "PRINTPREP_MAGICK"

// EngineInfo содержит информацию о найденном ImageMagick.
type EngineInfo struct {
	// Path - абсолютный путь к бинарнику.
	Path string

	// Version - версия ImageMagick (например, "7.1.1-21").
	Version string

	// Legacy - IM6: convert вместо magick.
	Legacy bool

	// Strategy - какая стратегия нашла бинарник.
	Strategy string
}

// Candidate - путь-кандидат.
type Candidate struct {
	Path   string
	Legacy bool
}

// Strategy - источник кандидатов.
type Strategy interface {
	Name() string
	Candidates() []Candidate
}

// Checker запускает "<path> -version" и возвращает вывод.
type Checker func(path string) (string, error)

// Finder ищет бинарник ImageMagick.
type Finder struct {
	// Strategies - стратегии в порядке приоритета.
	Strategies []Strategy

	// Check - проверка кандидата; по умолчанию RunVersion.
	Check Checker
}

// NewFinder создаёт Finder со стратегиями по умолчанию:
// 1. customPath (флаг --engine-path или конфиг)
// 2. Переменная окружения PRINTPREP_MAGICK
// 3. PATH (magick, затем convert)
// 4. Рядом с исполняемым файлом в ./bin/<os-arch>/
// 5. Стандартные каталоги установки для текущей ОС
func NewFinder(customPath string) *Finder {
	return &Finder{
		Strategies: []Strategy{
			CustomPath(customPath),
			EnvPath(EnvVar),
			PathLookup{},
			NextToExecutable{},
			PlatformDirs{GOOS: runtime.GOOS},
		},
		Check: RunVersion,
	}
}

// Find перебирает кандидатов и возвращает первый рабочий.
func (f *Finder) Find() (*EngineInfo, error) {
	check := f.Check
	if check == nil {
		check = RunVersion
	}

	seen := make(map[string]bool)
	for _, s := range f.Strategies {
		for _, c := range s.Candidates() {
			if c.Path == "" || seen[c.Path] {
				continue
			}
			seen[c.Path] = true

			if info, err := checkCandidate(c, check); err == nil {
				info.Strategy = s.Name()
				return info, nil
			}
		}
	}

	return nil, fmt.Errorf("ImageMagick не найден. Проверьте:\n"+
		"  1. Установлен ли ImageMagick (apt install imagemagick / brew install imagemagick)\n"+
		"  2. Установлена ли переменная окружения %s\n"+
		"  3. Указан ли путь через флаг --engine-path\n"+
		"  4. Находится ли magick рядом с утилитой в ./bin/<os-arch>/\n"+
		"  Без ImageMagick доступен встроенный движок: --engine builtin", EnvVar)
}

// checkCandidate проверяет, является ли путь рабочим ImageMagick.
func checkCandidate(c Candidate, check Checker) (*EngineInfo, error) {
	if _, err := os.Stat(c.Path); err != nil {
		return nil, fmt.Errorf("файл не найден: %w", err)
	}

	absPath, err := filepath.Abs(c.Path)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить абсолютный путь: %w", err)
	}

	output, err := check(absPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось выполнить %s -version: %w", absPath, err)
	}

	version, ok := ParseVersion(output)
	if !ok {
		return nil, fmt.Errorf("%s не похож на ImageMagick", absPath)
	}

	return &EngineInfo{
		Path:    absPath,
		Version: version,
		Legacy:  c.Legacy || isLegacyName(absPath),
	}, nil
}

// RunVersion выполняет "<path> -version".
func RunVersion(path string) (string, error) {
	out, err := exec.Command(path, "-version").Output()
	return string(out), err
}

var versionRe = regexp.MustCompile(`ImageMagick\s+([0-9][^\s]*)`)

// ParseVersion извлекает версию из вывода "-version".
// Пример вывода: "Version: ImageMagick 7.1.1-21 Q16-HDRI x86_64 ..."
func ParseVersion(output string) (string, bool) {
	m := versionRe.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func isLegacyName(path string) bool {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(path), ".exe"))
	return base == "convert"
}

// binaryName возвращает имя бинарника для текущей ОС.
func binaryName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// CustomPath - явно заданный путь.
type CustomPath string

func (p CustomPath) Name() string { return "custom" }

func (p CustomPath) Candidates() []Candidate {
	if p == "" {
		return nil
	}
	return []Candidate{{Path: string(p)}}
}

// EnvPath - путь из переменной окружения.
type EnvPath string

func (e EnvPath) Name() string { return "env" }

func (e EnvPath) Candidates() []Candidate {
	if v := os.Getenv(string(e)); v != "" {
		return []Candidate{{Path: v}}
	}
	return nil
}

// PathLookup ищет magick, затем convert в PATH.
type PathLookup struct{}

func (PathLookup) Name() string { return "path" }

func (PathLookup) Candidates() []Candidate {
	var out []Candidate
	if p, err := exec.LookPath("magick"); err == nil {
		out = append(out, Candidate{Path: p})
	}
	// convert.exe на windows - системная утилита файловой системы
	if runtime.GOOS != "windows" {
		if p, err := exec.LookPath("convert"); err == nil {
			out = append(out, Candidate{Path: p, Legacy: true})
		}
	}
	return out
}

// NextToExecutable ищет magick рядом с исполняемым файлом.
type NextToExecutable struct{}

func (NextToExecutable) Name() string { return "bundled" }

func (NextToExecutable) Candidates() []Candidate {
	execPath, err := os.Executable()
	if err != nil {
		return nil
	}
	execDir := filepath.Dir(execPath)
	platformDir := fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)
	name := binaryName("magick")

	return []Candidate{
		{Path: filepath.Join(execDir, "bin", platformDir, name)},
		{Path: filepath.Join(execDir, "bin", name)},
		{Path: filepath.Join(execDir, name)},
	}
}

// PlatformDirs - стандартные каталоги установки.
type PlatformDirs struct {
	GOOS string
}

func (PlatformDirs) Name() string { return "platform" }

func (d PlatformDirs) Candidates() []Candidate {
	switch d.GOOS {
	case "darwin":
		return []Candidate{
			{Path: "/opt/homebrew/bin/magick"},
			{Path: "/usr/local/bin/magick"},
			{Path: "/opt/local/bin/magick"},
			{Path: "/opt/homebrew/bin/convert", Legacy: true},
			{Path: "/usr/local/bin/convert", Legacy: true},
		}
	case "windows":
		var out []Candidate
		for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)"} {
			root := os.Getenv(env)
			if root == "" {
				continue
			}
			matches, _ := filepath.Glob(filepath.Join(root, "ImageMagick-*", "magick.exe"))
			// новые версии первыми
			for i := len(matches) - 1; i >= 0; i-- {
				out = append(out, Candidate{Path: matches[i]})
			}
		}
		return out
	default:
		return []Candidate{
			{Path: "/usr/bin/magick"},
			{Path: "/usr/local/bin/magick"},
			{Path: "/usr/bin/convert", Legacy: true},
			{Path: "/usr/local/bin/convert", Legacy: true},
		}
	}
}
