package plugins

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaiso/Flust/internal/ir"
)

// Ошибки плагинов.
var (
	// ErrUnknownPluginType — тип плагина не найден в реестре.
	ErrUnknownPluginType = errors.New("unknown plugin type")

	// ErrMissingProperty — отсутствует обязательное свойство узла.
	ErrMissingProperty = errors.New("missing required property")

	// ErrUnmappedArgument — для аргумента call-function нет значения
	// в variable_mapping входящего соединения.
	ErrUnmappedArgument = errors.New("unmapped argument")

	// ErrInvalidProperty — свойство есть, но его значение нельзя использовать.
	ErrInvalidProperty = errors.New("invalid property")
)

// PropertyError — ошибка, связанная с конкретным свойством узла.
type PropertyError struct {
	Key string // имя свойства или аргумента
	Err error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *PropertyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Key)
}

// Unwrap возвращает базовую ошибку.
func (e *PropertyError) Unwrap() error {
	return e.Err
}

func missingProperty(key string) error {
	return &PropertyError{Key: key, Err: ErrMissingProperty}
}

// Plugin — правило генерации кода для одного типа узла.
//
// Каждый тип узла (call-function, debug, legacy-code, ...) реализует
// этот интерфейс и регистрируется в Registry.
type Plugin interface {
	// Type возвращает основной тег plugin_type.
	Type() string

	// Aliases возвращает дополнительные теги, под которыми плагин
	// тоже доступен (например, legacy_code).
	Aliases() []string

	// Descriptor возвращает описание плагина для каталога.
	Descriptor() Descriptor

	// Render возвращает код узла без отступов.
	// Пустая строка означает, что узел ничего не выводит.
	Render(node *ir.Node, incoming []ir.Connection, rc *RenderContext) (string, error)
}

// RenderContext — данные, доступные плагину во время генерации.
type RenderContext struct {
	// Flow — компилируемый граф. Только для чтения.
	Flow *ir.Flow

	// Scope — ID function-definition, тело которой генерируется.
	// Пустая строка для точки входа, собранной из узлов верхнего уровня.
	Scope string

	// Logger — логгер текущей компиляции.
	Logger *slog.Logger
}

func (rc *RenderContext) logger() *slog.Logger {
	if rc == nil || rc.Logger == nil {
		return slog.Default()
	}
	return rc.Logger
}

// Descriptor — описание плагина для визуального редактора и CLI.
type Descriptor struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Category    string               `json:"category"`
	Icon        string               `json:"icon"`
	Description string               `json:"description"`
	Aliases     []string             `json:"aliases,omitempty"`
	Properties  []PropertyDescriptor `json:"properties"`
}

// Типы свойств в каталоге.
const (
	PropertyText      = "text"
	PropertyCode      = "code"
	PropertyNumber    = "number"
	PropertyBoolean   = "boolean"
	PropertyArguments = "arguments"
)

// PropertyDescriptor — описание одного свойства плагина.
type PropertyDescriptor struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Label     string `json:"label"`
	Default   any    `json:"default"`
	Required  bool   `json:"required"`
	Multiline bool   `json:"multiline,omitempty"`
}
