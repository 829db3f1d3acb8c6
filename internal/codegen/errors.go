package codegen

import (
	"errors"
	"fmt"

	"github.com/shaiso/Flust/internal/engine"
	"github.com/shaiso/Flust/internal/ir"
	"github.com/shaiso/Flust/internal/plugins"
)

// Ошибки генерации.
var (
	// ErrNodeNotFound — соединение или parent_id ссылается на несуществующий узел.
	ErrNodeNotFound = errors.New("node not found")

	// ErrMissingProperty — отсутствует обязательное свойство узла.
	ErrMissingProperty = plugins.ErrMissingProperty

	// ErrUnmappedArgument — аргументу call-function не сопоставлено значение.
	ErrUnmappedArgument = plugins.ErrUnmappedArgument

	// ErrUnknownPluginType — plugin_type не зарегистрирован.
	ErrUnknownPluginType = plugins.ErrUnknownPluginType

	// ErrInvalidProperty — значение свойства не удалось разобрать.
	ErrInvalidProperty = plugins.ErrInvalidProperty

	// ErrTimeout — компиляция не уложилась в таймаут вызывающей стороны.
	ErrTimeout = errors.New("compilation timed out")
)

// Виды ошибок для CLI, HTTP ответов и меток метрик.
const (
	KindParse             = "ParseError"
	KindValidation        = "ValidationError"
	KindNodeNotFound      = "NodeNotFound"
	KindCycleDetected     = "CycleDetected"
	KindMissingProperty   = "MissingProperty"
	KindInvalidProperty   = "InvalidProperty"
	KindUnmappedArgument  = "UnmappedArgument"
	KindUnknownPluginType = "UnknownPluginType"
	KindTemplate          = "TemplateError"
	KindTimeout           = "Timeout"
	KindInternal          = "Internal"
)

// NodeError — ошибка генерации с контекстом узла.
type NodeError struct {
	NodeID     string // ID узла, где произошла ошибка
	PluginType string // тип узла
	Key        string // свойство или аргумент, если применимо
	Err        error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *NodeError) Error() string {
	prefix := "node " + e.NodeID
	if e.PluginType != "" {
		prefix += " [" + e.PluginType + "]"
	}
	if e.Key != "" {
		return fmt.Sprintf("%s: %v: %s", prefix, e.Err, e.Key)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

// Unwrap возвращает базовую ошибку.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// nodeError оборачивает ошибку плагина, вынося имя свойства в Key.
func nodeError(node *ir.Node, err error) *NodeError {
	ne := &NodeError{NodeID: node.ID, PluginType: node.PluginType, Err: err}

	var propErr *plugins.PropertyError
	if errors.As(err, &propErr) {
		ne.Key = propErr.Key
		ne.Err = propErr.Err
	}
	return ne
}

// ErrorKind возвращает стабильное имя вида ошибки.
// Для nil возвращает пустую строку.
func ErrorKind(err error) string {
	var validationErr *ir.ValidationError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ir.ErrParse):
		return KindParse
	case errors.Is(err, ErrNodeNotFound), errors.Is(err, ir.ErrDanglingConnection):
		return KindNodeNotFound
	case errors.Is(err, engine.ErrCycleDetected):
		return KindCycleDetected
	case errors.Is(err, ErrMissingProperty):
		return KindMissingProperty
	case errors.Is(err, ErrInvalidProperty):
		return KindInvalidProperty
	case errors.Is(err, ErrUnmappedArgument):
		return KindUnmappedArgument
	case errors.Is(err, ErrUnknownPluginType):
		return KindUnknownPluginType
	case errors.Is(err, engine.ErrTemplateParse):
		return KindTemplate
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	default:
		return KindInternal
	}
}
