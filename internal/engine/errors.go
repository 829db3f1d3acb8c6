package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycleDetected — в соединениях области обнаружен цикл.
	ErrCycleDetected = errors.New("cycle detected in flow graph")

	// ErrTemplateParse — шаблон синтаксически некорректен.
	ErrTemplateParse = errors.New("template parse failed")
)

// CycleError — цикл в области с перечнем узлов, которые не удалось упорядочить.
type CycleError struct {
	NodeIDs []string
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	if len(e.NodeIDs) == 0 {
		return ErrCycleDetected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCycleDetected, strings.Join(e.NodeIDs, ", "))
}

// Unwrap возвращает ErrCycleDetected.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// TemplateError — ошибка разбора шаблона с позицией в исходном тексте.
type TemplateError struct {
	Pos int    // смещение в байтах
	Msg string // описание ошибки
}

// Error реализует интерфейс error.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s: at offset %d: %s", ErrTemplateParse, e.Pos, e.Msg)
}

// Unwrap возвращает ErrTemplateParse.
func (e *TemplateError) Unwrap() error {
	return ErrTemplateParse
}
