package ir

import (
	"errors"
	"fmt"
)

// Ошибки разбора и валидации Flow.
var (
	// ErrParse — документ не является корректным YAML/JSON описанием Flow.
	ErrParse = errors.New("parse error")

	// ErrEmptyNodeID — узел без ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrEmptyPluginType — узел без типа плагина.
	ErrEmptyPluginType = errors.New("node has empty plugin type")

	// ErrDanglingConnection — соединение ссылается на несуществующий узел.
	ErrDanglingConnection = errors.New("connection references unknown node")

	// ErrInvalidParent — parent_id ссылается не на function-definition.
	ErrInvalidParent = errors.New("parent is not a function definition")

	// ErrConflictingAlias — узел задаёт поле и его алиас с разными значениями.
	ErrConflictingAlias = errors.New("conflicting alias")
)

// ParseError — ошибка разбора документа.
type ParseError struct {
	Source string // имя файла или "<input>"
	Msg    string // описание ошибки
	Err    error  // исходная ошибка декодера
}

// Error реализует интерфейс error.
func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %s", ErrParse, e.Source, e.Msg)
	}
	return fmt.Sprintf("%s: %s", ErrParse, e.Msg)
}

// Unwrap позволяет проверять errors.Is(err, ErrParse).
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// ValidationError — ошибка валидации Flow с контекстом.
type ValidationError struct {
	NodeID  string // ID узла, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
