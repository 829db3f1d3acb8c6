package plugins

import (
	"fmt"
	"strings"

	"github.com/shaiso/Flust/internal/ir"
)

// Ключи свойств call-function.
const (
	propTargetFunction  = "target_function"
	propArguments       = "arguments"
	propReturnVariable  = "return_variable"
	propDeclareVariable = "declare_variable"
	propIsMutable       = "is_mutable"
	propReturnType      = "return_type"
)

// CallFunctionPlugin — вызов асинхронной функции.
//
// Значения аргументов берутся из variable_mapping первого входящего
// соединения. Остальные входящие соединения на аргументы не влияют.
//
// Свойства:
//
//	{
//	    "target_function": "my_func",          // обязательно
//	    "arguments": [{"name": "x"}],          // порядок аргументов вызова
//	    "return_variable": "result",           // опционально
//	    "declare_variable": true,              // let (true) или присваивание (false)
//	    "is_mutable": false,                   // let mut
//	    "return_type": "i32"                   // явный тип переменной
//	}
//
// Результат: let mut result: i32 = my_func(42).await;
type CallFunctionPlugin struct{}

// NewCallFunctionPlugin создаёт новый CallFunctionPlugin.
func NewCallFunctionPlugin() *CallFunctionPlugin {
	return &CallFunctionPlugin{}
}

// Type возвращает тип плагина.
func (p *CallFunctionPlugin) Type() string {
	return ir.PluginCallFunction
}

// Aliases возвращает алиасы типа.
func (p *CallFunctionPlugin) Aliases() []string {
	return nil
}

// Descriptor возвращает описание плагина.
func (p *CallFunctionPlugin) Descriptor() Descriptor {
	return Descriptor{
		ID:          ir.PluginCallFunction,
		Name:        "Call Function",
		Category:    "Functions",
		Icon:        "phone",
		Description: "Calls an async function and optionally stores the result",
		Properties: []PropertyDescriptor{
			{Name: propTargetFunction, Type: PropertyText, Label: "Function", Default: "", Required: true},
			{Name: propArguments, Type: PropertyArguments, Label: "Arguments", Default: []ir.FunctionArgument{}},
			{Name: propReturnVariable, Type: PropertyText, Label: "Result variable", Default: ""},
			{Name: propDeclareVariable, Type: PropertyBoolean, Label: "Declare variable", Default: true},
			{Name: propIsMutable, Type: PropertyBoolean, Label: "Mutable", Default: false},
			{Name: propReturnType, Type: PropertyText, Label: "Result type", Default: ""},
		},
	}
}

// Render строит выражение вызова.
func (p *CallFunctionPlugin) Render(node *ir.Node, incoming []ir.Connection, rc *RenderContext) (string, error) {
	target, ok := node.GetString(propTargetFunction)
	if !ok || target == "" {
		return "", missingProperty(propTargetFunction)
	}

	args, err := node.Arguments(propArguments)
	if err != nil {
		return "", &PropertyError{Key: propArguments, Err: fmt.Errorf("%w: %v", ErrInvalidProperty, err)}
	}

	var mapping map[string]string
	if len(incoming) > 0 {
		mapping = incoming[0].VariableMapping
		if len(incoming) > 1 {
			rc.logger().Debug("call-function has several incoming connections, using the first",
				"node_id", node.ID,
				"from", incoming[0].From,
				"incoming", len(incoming),
			)
		}
	}

	values := make([]string, 0, len(args))
	for _, arg := range args {
		value, ok := mapping[arg.Name]
		if !ok || value == "" {
			return "", &PropertyError{Key: arg.Name, Err: ErrUnmappedArgument}
		}
		values = append(values, value)
	}

	call := fmt.Sprintf("%s(%s).await;", target, strings.Join(values, ", "))

	variable, ok := node.GetString(propReturnVariable)
	if !ok || variable == "" {
		return call, nil
	}

	if !node.GetBool(propDeclareVariable, true) {
		return variable + " = " + call, nil
	}

	var b strings.Builder
	b.WriteString("let ")
	if node.GetBool(propIsMutable, false) {
		b.WriteString("mut ")
	}
	b.WriteString(variable)
	if typ, ok := node.GetString(propReturnType); ok && typ != "" {
		b.WriteString(": ")
		b.WriteString(typ)
	}
	b.WriteString(" = ")
	b.WriteString(call)
	return b.String(), nil
}
