package plugins

import "github.com/shaiso/Flust/internal/ir"

const (
	propFunctionName = "function_name"
)

// StartNodePlugin — точка начала тела функции. Кода не порождает,
// нужна только как источник соединений.
type StartNodePlugin struct{}

// NewStartNodePlugin создаёт новый StartNodePlugin.
func NewStartNodePlugin() *StartNodePlugin {
	return &StartNodePlugin{}
}

func (p *StartNodePlugin) Type() string      { return ir.PluginStartNode }
func (p *StartNodePlugin) Aliases() []string { return nil }

func (p *StartNodePlugin) Descriptor() Descriptor {
	return Descriptor{
		ID:          ir.PluginStartNode,
		Name:        "Start",
		Category:    "Flow",
		Icon:        "play",
		Description: "Entry of a function body",
		Properties:  []PropertyDescriptor{},
	}
}

func (p *StartNodePlugin) Render(_ *ir.Node, _ []ir.Connection, _ *RenderContext) (string, error) {
	return "", nil
}

// FunctionDefinitionPlugin — контейнер функции.
//
// Сигнатуру и тело собирает генератор: плагин только описывает свойства
// для каталога и ничего не выводит внутри чужих областей.
type FunctionDefinitionPlugin struct{}

// NewFunctionDefinitionPlugin создаёт новый FunctionDefinitionPlugin.
func NewFunctionDefinitionPlugin() *FunctionDefinitionPlugin {
	return &FunctionDefinitionPlugin{}
}

func (p *FunctionDefinitionPlugin) Type() string      { return ir.PluginFunctionDefinition }
func (p *FunctionDefinitionPlugin) Aliases() []string { return nil }

func (p *FunctionDefinitionPlugin) Descriptor() Descriptor {
	return Descriptor{
		ID:          ir.PluginFunctionDefinition,
		Name:        "Function",
		Category:    "Functions",
		Icon:        "function",
		Description: "Defines an async function; the function named main is the entry point",
		Properties: []PropertyDescriptor{
			{Name: propFunctionName, Type: PropertyText, Label: "Name", Default: "", Required: true},
			{Name: propArguments, Type: PropertyArguments, Label: "Arguments", Default: []ir.FunctionArgument{}},
			{Name: propReturnType, Type: PropertyText, Label: "Return type", Default: ""},
		},
	}
}

func (p *FunctionDefinitionPlugin) Render(_ *ir.Node, _ []ir.Connection, _ *RenderContext) (string, error) {
	return "", nil
}

// IsStructural сообщает, что узел не порождает кода внутри области.
func IsStructural(pluginType string) bool {
	return pluginType == ir.PluginStartNode || pluginType == ir.PluginFunctionDefinition
}
