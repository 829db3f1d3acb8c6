package engine

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shaiso/Flust/internal/ir"
)

// Template — разобранный шаблон.
//
// Поддерживаемый синтаксис:
//
//	{{name}}                          — подстановка значения из контекста
//	{{#if name}}...{{else}}...{{/if}} — условие (истина = непустая строка)
//	{{#unless name}}...{{/unless}}    — обратное условие
//	{{#each items}}...{{/each}}       — цикл по JSON-массиву объектов
//
// Внутри each доступны поля текущего элемента и флаг @last.
// Шаблон разбирается один раз и дальше рендерится без повторного сканирования.
type Template struct {
	root []tmplNode
}

// ParseTemplate разбирает шаблон.
// Незакрытые блоки, лишние {{else}} и закрывающие теги возвращают *TemplateError.
func ParseTemplate(src string) (*Template, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	root, _, err := p.parseList(nil, false)
	if err != nil {
		return nil, err
	}

	return &Template{root: root}, nil
}

// MustParseTemplate разбирает шаблон и паникует при ошибке.
// Используется для шаблонов, зашитых в код плагинов.
func MustParseTemplate(src string) *Template {
	t, err := ParseTemplate(src)
	if err != nil {
		panic(err)
	}
	return t
}

// Render рендерит строковый шаблон с контекстом.
func Render(src string, ctx map[string]string) (string, error) {
	// Проверяем, содержит ли строка шаблонные выражения
	if !strings.Contains(src, "{{") {
		return src, nil
	}

	t, err := ParseTemplate(src)
	if err != nil {
		return "", err
	}
	return t.Render(ctx), nil
}

// Render рендерит шаблон. Чистая функция: одинаковые входы дают
// одинаковый результат.
//
// Ключи, отсутствующие в контексте, остаются в тексте как есть ({{key}}).
func (t *Template) Render(ctx map[string]string) string {
	var buf strings.Builder
	renderList(&buf, t.root, &scope{ctx: ctx})
	return buf.String()
}

// --- Лексер ---

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenTag
)

type token struct {
	kind tokenKind
	raw  string // исходный текст, для тегов вместе со скобками
	name string // содержимое тега без скобок и пробелов
	pos  int
}

func lex(src string) ([]token, error) {
	tokens := make([]token, 0)
	i := 0

	for i < len(src) {
		open := strings.Index(src[i:], "{{")
		if open < 0 {
			tokens = append(tokens, token{kind: tokenText, raw: src[i:], pos: i})
			break
		}
		open += i

		if open > i {
			tokens = append(tokens, token{kind: tokenText, raw: src[i:open], pos: i})
		}

		end := strings.Index(src[open+2:], "}}")
		if end < 0 {
			return nil, &TemplateError{Pos: open, Msg: "unclosed tag"}
		}
		end += open + 2

		name := strings.TrimSpace(src[open+2 : end])
		if name == "" {
			return nil, &TemplateError{Pos: open, Msg: "empty tag"}
		}

		tokens = append(tokens, token{
			kind: tokenTag,
			raw:  src[open : end+2],
			name: name,
			pos:  open,
		})
		i = end + 2
	}

	return tokens, nil
}

// --- Синтаксическое дерево ---

type tmplNode interface {
	render(buf *strings.Builder, s *scope)
}

type textNode struct {
	text string
}

type varNode struct {
	key string
	raw string
}

type ifNode struct {
	key     string
	then    []tmplNode
	orElse  []tmplNode
	negated bool // unless
}

type eachNode struct {
	key  string
	body []tmplNode
}

// --- Парсер ---

type parser struct {
	tokens []token
	pos    int
}

// parseList разбирает последовательность узлов до закрывающего тега opener.
// Возвращает токен, на котором остановился (закрывающий тег или {{else}}).
func (p *parser) parseList(opener *token, allowElse bool) ([]tmplNode, *token, error) {
	closing := ""
	if opener != nil {
		closing = "/" + blockKeyword(opener.name)
	}

	nodes := make([]tmplNode, 0)

	for p.pos < len(p.tokens) {
		tok := &p.tokens[p.pos]
		p.pos++

		if tok.kind == tokenText {
			nodes = append(nodes, &textNode{text: tok.raw})
			continue
		}

		switch {
		case tok.name == "else":
			if !allowElse {
				return nil, nil, &TemplateError{Pos: tok.pos, Msg: "unexpected {{else}}"}
			}
			return nodes, tok, nil

		case strings.HasPrefix(tok.name, "/"):
			if tok.name != closing {
				return nil, nil, &TemplateError{Pos: tok.pos, Msg: "unexpected " + tok.raw}
			}
			return nodes, tok, nil

		case strings.HasPrefix(tok.name, "#"):
			node, err := p.parseBlock(tok)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, node)

		default:
			nodes = append(nodes, &varNode{key: tok.name, raw: tok.raw})
		}
	}

	if opener != nil {
		return nil, nil, &TemplateError{Pos: opener.pos, Msg: "unterminated " + opener.raw}
	}
	return nodes, nil, nil
}

// parseBlock разбирает блок, открытый тегом {{#keyword arg}}.
func (p *parser) parseBlock(opener *token) (tmplNode, error) {
	fields := strings.Fields(strings.TrimPrefix(opener.name, "#"))
	if len(fields) != 2 {
		return nil, &TemplateError{Pos: opener.pos, Msg: "block needs exactly one argument: " + opener.raw}
	}
	keyword, arg := fields[0], fields[1]

	switch keyword {
	case "if":
		then, end, err := p.parseList(opener, true)
		if err != nil {
			return nil, err
		}
		node := &ifNode{key: arg, then: then}
		if end.name == "else" {
			orElse, _, err := p.parseList(opener, false)
			if err != nil {
				return nil, err
			}
			node.orElse = orElse
		}
		return node, nil

	case "unless":
		body, _, err := p.parseList(opener, false)
		if err != nil {
			return nil, err
		}
		return &ifNode{key: arg, then: body, negated: true}, nil

	case "each":
		body, _, err := p.parseList(opener, false)
		if err != nil {
			return nil, err
		}
		return &eachNode{key: arg, body: body}, nil

	default:
		return nil, &TemplateError{Pos: opener.pos, Msg: "unknown block " + opener.raw}
	}
}

func blockKeyword(name string) string {
	fields := strings.Fields(strings.TrimPrefix(name, "#"))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// --- Рендеринг ---

// scope — значения, видимые при рендеринге.
type scope struct {
	ctx    map[string]string
	item   map[string]any // текущий элемент each
	inEach bool
	last   bool
}

const lastKey = "@last"

// lookup ищет значение: поле элемента each, затем плоский контекст.
func (s *scope) lookup(key string) (string, bool) {
	if key == lastKey && s.inEach {
		return strconv.FormatBool(s.last), true
	}
	if s.item != nil {
		if v, ok := s.item[key]; ok {
			return ir.Stringify(v), true
		}
	}
	v, ok := s.ctx[key]
	return v, ok
}

// truthy — значение плоского контекста существует и непустое.
// Поля элемента each условия не видят, кроме @last.
func (s *scope) truthy(key string) bool {
	if key == lastKey {
		return s.inEach && s.last
	}
	v, ok := s.ctx[key]
	return ok && v != ""
}

func renderList(buf *strings.Builder, nodes []tmplNode, s *scope) {
	for _, n := range nodes {
		n.render(buf, s)
	}
}

func (n *textNode) render(buf *strings.Builder, _ *scope) {
	buf.WriteString(n.text)
}

func (n *varNode) render(buf *strings.Builder, s *scope) {
	if v, ok := s.lookup(n.key); ok {
		buf.WriteString(v)
		return
	}
	buf.WriteString(n.raw)
}

func (n *ifNode) render(buf *strings.Builder, s *scope) {
	cond := s.truthy(n.key)
	if n.negated {
		// unless: тело остаётся без обрезки пробелов
		if !cond {
			renderList(buf, n.then, s)
		}
		return
	}

	branch := n.orElse
	if cond {
		branch = n.then
	}

	var inner strings.Builder
	renderList(&inner, branch, s)
	buf.WriteString(strings.TrimSpace(inner.String()))
}

func (n *eachNode) render(buf *strings.Builder, s *scope) {
	raw, ok := s.lookup(n.key)
	if !ok {
		return
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil {
		return
	}

	for i, el := range items {
		item, _ := el.(map[string]any)
		renderList(buf, n.body, &scope{
			ctx:    s.ctx,
			item:   item,
			inEach: true,
			last:   i == len(items)-1,
		})
	}
}
