package codegen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaiso/Flust/internal/engine"
	"github.com/shaiso/Flust/internal/ir"
	"github.com/shaiso/Flust/internal/plugins"
)

// EmptyProgram — результат генерации для Flow без узлов.
const EmptyProgram = "fn main() {\n    // Empty flow\n}\n"

const (
	indent        = "    "
	entryHeader   = "#[tokio::main]\nasync fn main() {\n"
	scopeEntry    = ""
	propFuncName  = "function_name"
	propArguments = "arguments"
	propRetType   = "return_type"
)

// signatureTemplate — заголовок асинхронной функции.
// Элементы arguments — объекты {"param": "x: i32"}.
var signatureTemplate = engine.MustParseTemplate(
	"async fn {{function_name}}(" +
		"{{#each arguments}}{{param}}{{#unless @last}}, {{/unless}}{{/each}}" +
		"){{return_clause}} {",
)

// Generator — генератор исходного кода по Flow.
//
// Не хранит состояния между вызовами: все индексы строятся заново
// на каждый Generate, поэтому один Generator можно использовать
// из нескольких горутин.
type Generator struct {
	registry *plugins.Registry
	logger   *slog.Logger
}

// Option — опция Generator.
type Option func(*Generator)

// WithRegistry задаёт реестр плагинов.
func WithRegistry(r *plugins.Registry) Option {
	return func(g *Generator) {
		g.registry = r
	}
}

// WithLogger задаёт логгер.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// New создаёт Generator. По умолчанию используются
// plugins.DefaultRegistry и slog.Default.
func New(opts ...Option) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	if g.registry == nil {
		g.registry = plugins.DefaultRegistry()
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

var defaultGenerator = New()

// Generate генерирует код стандартным генератором.
func Generate(flow *ir.Flow) (string, error) {
	return defaultGenerator.Generate(flow)
}

// Registry возвращает реестр плагинов генератора.
func (g *Generator) Registry() *plugins.Registry {
	return g.registry
}

// WithLogger возвращает копию генератора с другим логгером.
func (g *Generator) WithLogger(l *slog.Logger) *Generator {
	clone := *g
	clone.logger = l
	return &clone
}

// Generate превращает Flow в исходный код.
//
// Функции (function-definition) выводятся в порядке объявления,
// точка входа — последней. Первая же ошибка прерывает генерацию,
// частичный результат не возвращается.
func (g *Generator) Generate(flow *ir.Flow) (string, error) {
	return g.GenerateContext(context.Background(), flow)
}

// GenerateContext выполняет Generate с учётом отмены ctx.
// Контекст проверяется перед каждой функцией и каждым узлом;
// после отмены генерация останавливается с ErrTimeout.
func (g *Generator) GenerateContext(ctx context.Context, flow *ir.Flow) (string, error) {
	if flow == nil || len(flow.Nodes) == 0 {
		return EmptyProgram, nil
	}
	if err := checkContext(ctx); err != nil {
		return "", err
	}

	idx, err := newIndex(flow)
	if err != nil {
		return "", err
	}

	var (
		sections []string
		entry    *ir.Node
	)

	for _, id := range idx.declared {
		node := idx.nodes[id]
		if !node.IsFunctionDefinition() {
			continue
		}

		name, ok := node.GetString(propFuncName)
		if !ok || name == "" {
			return "", &NodeError{NodeID: node.ID, PluginType: node.PluginType, Key: propFuncName, Err: ErrMissingProperty}
		}

		if name == ir.EntryFunctionName {
			if entry == nil {
				entry = node
			} else {
				g.logger.Warn("duplicate entry function ignored", "node_id", node.ID, "entry_id", entry.ID)
			}
			continue
		}

		fn, err := g.function(ctx, flow, idx, node, name)
		if err != nil {
			return "", err
		}
		sections = append(sections, fn)
	}

	var (
		entryScope string
		entryIDs   []string
	)
	if entry != nil {
		entryScope = entry.ID
		entryIDs = idx.children[entry.ID]
	} else {
		for _, id := range idx.topLevel {
			if !idx.nodes[id].IsFunctionDefinition() {
				entryIDs = append(entryIDs, id)
			}
		}
	}

	body, err := g.scope(ctx, flow, idx, entryScope, entryIDs)
	if err != nil {
		return "", err
	}
	sections = append(sections, entryHeader+body+"}\n")

	g.logger.Debug("flow generated",
		"nodes", len(flow.Nodes),
		"connections", len(flow.Connections),
		"functions", len(sections)-1,
	)

	return strings.Join(sections, "\n"), nil
}

// checkContext переводит отмену ctx в ErrTimeout.
func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return nil
}

// function генерирует определение функции с телом.
func (g *Generator) function(ctx context.Context, flow *ir.Flow, idx *index, node *ir.Node, name string) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}

	args, err := node.Arguments(propArguments)
	if err != nil {
		return "", &NodeError{
			NodeID:     node.ID,
			PluginType: node.PluginType,
			Key:        propArguments,
			Err:        fmt.Errorf("%w: %v", ErrInvalidProperty, err),
		}
	}
	params := make([]map[string]string, 0, len(args))
	for _, a := range args {
		param := a.Name
		if a.Type != "" {
			param += ": " + a.Type
		}
		params = append(params, map[string]string{"param": param})
	}

	argsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal arguments of %s: %w", node.ID, err)
	}

	returnClause := ""
	if rt, ok := node.GetString(propRetType); ok && rt != "" {
		returnClause = " -> " + rt
	}

	header := signatureTemplate.Render(map[string]string{
		propFuncName:    name,
		propArguments:   string(argsJSON),
		"return_clause": returnClause,
	})

	body, err := g.scope(ctx, flow, idx, node.ID, idx.children[node.ID])
	if err != nil {
		return "", err
	}

	return header + "\n" + body + "}\n", nil
}

// scope генерирует тело одной области: сортирует узлы и вызывает
// плагины. Каждая непустая строка получает отступ.
func (g *Generator) scope(ctx context.Context, flow *ir.Flow, idx *index, scopeID string, ids []string) (string, error) {
	order, err := engine.SortScope(ids, flow.Connections)
	if err != nil {
		if scopeID == scopeEntry {
			return "", fmt.Errorf("entry scope: %w", err)
		}
		return "", fmt.Errorf("scope %s: %w", scopeID, err)
	}

	rc := &plugins.RenderContext{
		Flow:   flow,
		Scope:  scopeID,
		Logger: g.logger,
	}

	var b strings.Builder
	for _, id := range order {
		if err := checkContext(ctx); err != nil {
			return "", err
		}

		node, ok := idx.nodes[id]
		if !ok {
			return "", &NodeError{NodeID: id, Err: ErrNodeNotFound}
		}
		if plugins.IsStructural(node.PluginType) {
			continue
		}

		plugin, err := g.registry.Get(node.PluginType)
		if err != nil {
			return "", nodeError(node, err)
		}

		code, err := plugin.Render(node, idx.incoming[id], rc)
		if err != nil {
			return "", nodeError(node, err)
		}

		for _, line := range strings.Split(code, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			b.WriteString(indent)
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	g.logger.Debug("scope generated", "scope", scopeID, "nodes", len(order))

	return b.String(), nil
}

// index — индексы Flow, построенные один раз на вызов Generate.
type index struct {
	nodes    map[string]*ir.Node
	declared []string
	topLevel []string
	children map[string][]string        // parent → дети в порядке объявления
	incoming map[string][]ir.Connection // to → входящие соединения
}

func newIndex(flow *ir.Flow) (*index, error) {
	idx := &index{
		nodes:    make(map[string]*ir.Node, len(flow.Nodes)),
		declared: make([]string, 0, len(flow.Nodes)),
		children: make(map[string][]string),
		incoming: make(map[string][]ir.Connection),
	}

	for i := range flow.Nodes {
		node := &flow.Nodes[i]
		if _, exists := idx.nodes[node.ID]; exists {
			return nil, ir.NewValidationError(node.ID, "id",
				"duplicate node ID: "+node.ID, ir.ErrDuplicateNodeID)
		}
		idx.nodes[node.ID] = node
		idx.declared = append(idx.declared, node.ID)
	}

	for _, id := range idx.declared {
		node := idx.nodes[id]
		if node.IsTopLevel() {
			idx.topLevel = append(idx.topLevel, id)
			continue
		}
		if _, ok := idx.nodes[node.Parent()]; !ok {
			return nil, &NodeError{NodeID: node.ID, PluginType: node.PluginType, Key: "parent_id", Err: ErrNodeNotFound}
		}
		idx.children[node.Parent()] = append(idx.children[node.Parent()], id)
	}

	for _, conn := range flow.Connections {
		if _, ok := idx.nodes[conn.From]; !ok {
			return nil, &NodeError{NodeID: conn.From, Key: "from", Err: ErrNodeNotFound}
		}
		if _, ok := idx.nodes[conn.To]; !ok {
			return nil, &NodeError{NodeID: conn.To, Key: "to", Err: ErrNodeNotFound}
		}
		idx.incoming[conn.To] = append(idx.incoming[conn.To], conn)
	}

	return idx, nil
}
