package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// defaultPackageName — имя пакета, если из каталога его не вывести.
const defaultPackageName = "flust_app"

// cargoManifest — Cargo.toml сгенерированного проекта.
// tokio нужен для #[tokio::main] и .await.
const cargoManifest = `[package]
name = "%s"
version = "0.1.0"
edition = "2021"

[dependencies]
tokio = { version = "1", features = ["full"] }
`

// Project — файлы, записанные WriteProject.
type Project struct {
	Dir          string
	Manifest     string
	Main         string
	ManifestKept bool // Cargo.toml уже существовал и не перезаписан
}

// WriteProject создаёт Cargo-проект в dir и записывает code в src/main.rs.
//
// Существующий Cargo.toml не трогается: пользователь мог добавить
// зависимости. src/main.rs перезаписывается всегда.
func WriteProject(dir, code string) (*Project, error) {
	p := &Project{
		Dir:      dir,
		Manifest: filepath.Join(dir, "Cargo.toml"),
		Main:     filepath.Join(dir, "src", "main.rs"),
	}

	if err := os.MkdirAll(filepath.Dir(p.Main), 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}

	_, err := os.Stat(p.Manifest)
	switch {
	case err == nil:
		p.ManifestKept = true
	case errors.Is(err, fs.ErrNotExist):
		manifest := fmt.Sprintf(cargoManifest, PackageName(dir))
		if err := os.WriteFile(p.Manifest, []byte(manifest), 0o644); err != nil {
			return nil, fmt.Errorf("write Cargo.toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("stat Cargo.toml: %w", err)
	}

	if err := os.WriteFile(p.Main, []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("write main.rs: %w", err)
	}

	return p, nil
}

// PackageName выводит имя Cargo-пакета из пути каталога:
// нижний регистр, всё кроме букв, цифр, '-' и '_' заменяется на '_'.
func PackageName(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	if base == "." || base == string(filepath.Separator) {
		return defaultPackageName
	}

	name := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return unicode.ToLower(r)
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)

	name = strings.Trim(name, "_-")
	if name == "" {
		return defaultPackageName
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "flust_" + name
	}
	return name
}
