package plugins

import (
	"strings"

	"github.com/shaiso/Flust/internal/engine"
	"github.com/shaiso/Flust/internal/ir"
)

const (
	propVariable = "variable"
	propLabel    = "label"
)

var debugTemplate = engine.MustParseTemplate(
	`{{#if label}}println!("{{label}}: {:?}", {{variable}});{{else}}println!("{:?}", {{variable}});{{/if}}`,
)

// labelEscaper экранирует метку для строки формата println!.
var labelEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"{", "{{",
	"}", "}}",
	"\n", `\n`,
)

// DebugPlugin — отладочный вывод значения переменной.
//
// Свойства:
//
//	{
//	    "variable": "x",    // обязательно
//	    "label": "Value"    // опционально
//	}
//
// Результат: println!("Value: {:?}", x); или println!("{:?}", x);
type DebugPlugin struct{}

// NewDebugPlugin создаёт новый DebugPlugin.
func NewDebugPlugin() *DebugPlugin {
	return &DebugPlugin{}
}

// Type возвращает тип плагина.
func (p *DebugPlugin) Type() string {
	return ir.PluginDebug
}

// Aliases возвращает алиасы типа.
func (p *DebugPlugin) Aliases() []string {
	return nil
}

// Descriptor возвращает описание плагина.
func (p *DebugPlugin) Descriptor() Descriptor {
	return Descriptor{
		ID:          ir.PluginDebug,
		Name:        "Debug Print",
		Category:    "Debug",
		Icon:        "bug",
		Description: "Prints a variable with Debug formatting",
		Properties: []PropertyDescriptor{
			{Name: propVariable, Type: PropertyText, Label: "Variable", Default: "", Required: true},
			{Name: propLabel, Type: PropertyText, Label: "Label", Default: ""},
		},
	}
}

// Render строит вызов println!.
func (p *DebugPlugin) Render(node *ir.Node, _ []ir.Connection, _ *RenderContext) (string, error) {
	variable, ok := node.GetString(propVariable)
	if !ok || variable == "" {
		return "", missingProperty(propVariable)
	}

	ctx := map[string]string{propVariable: variable}
	if label, ok := node.GetString(propLabel); ok {
		ctx[propLabel] = labelEscaper.Replace(label)
	}

	return debugTemplate.Render(ctx), nil
}
