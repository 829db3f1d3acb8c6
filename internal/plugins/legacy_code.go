package plugins

import (
	"github.com/shaiso/Flust/internal/engine"
	"github.com/shaiso/Flust/internal/ir"
)

const propCode = "code"

// legacyCodeTemplate выводит код узла как есть.
var legacyCodeTemplate = engine.MustParseTemplate("{{code}}")

// LegacyCodePlugin — вставка произвольного кода.
//
// Свойства узла становятся контекстом шаблона {{code}}, переносы строк
// внутри code сохраняются. Узел без code ничего не выводит.
type LegacyCodePlugin struct{}

// NewLegacyCodePlugin создаёт новый LegacyCodePlugin.
func NewLegacyCodePlugin() *LegacyCodePlugin {
	return &LegacyCodePlugin{}
}

// Type возвращает тип плагина.
func (p *LegacyCodePlugin) Type() string {
	return ir.PluginLegacyCode
}

// Aliases возвращает алиасы типа.
func (p *LegacyCodePlugin) Aliases() []string {
	return []string{ir.PluginLegacyCodeAlias}
}

// Descriptor возвращает описание плагина.
func (p *LegacyCodePlugin) Descriptor() Descriptor {
	return Descriptor{
		ID:          ir.PluginLegacyCode,
		Name:        "Legacy Code",
		Category:    "Code",
		Icon:        "code",
		Description: "Inserts raw Rust code",
		Aliases:     p.Aliases(),
		Properties: []PropertyDescriptor{
			{Name: propCode, Type: PropertyCode, Label: "Code", Default: "", Multiline: true},
		},
	}
}

// Render выводит свойство code.
func (p *LegacyCodePlugin) Render(node *ir.Node, _ []ir.Connection, _ *RenderContext) (string, error) {
	ctx := node.StringMap()
	if _, ok := ctx[propCode]; !ok {
		ctx[propCode] = ""
	}
	return legacyCodeTemplate.Render(ctx), nil
}
