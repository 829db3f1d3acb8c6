package plugins

import (
	"fmt"
	"sort"
	"sync"
)

// Registry — реестр плагинов генерации.
//
// Позволяет регистрировать и получать Plugin по plugin_type или его алиасу.
// Потокобезопасен.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	aliases map[string]string // алиас → основной тип
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		aliases: make(map[string]string),
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными плагинами.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Регистрируем все стандартные плагины
	r.Register(NewFunctionDefinitionPlugin())
	r.Register(NewStartNodePlugin())
	r.Register(NewCallFunctionPlugin())
	r.Register(NewLegacyCodePlugin())
	r.Register(NewDebugPlugin())

	return r
}

// Register регистрирует плагин в реестре.
// Если плагин с таким типом уже существует, он будет перезаписан.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.plugins[p.Type()]; exists {
		r.dropAliases(old)
	}

	r.plugins[p.Type()] = p
	for _, alias := range p.Aliases() {
		r.aliases[alias] = p.Type()
	}
}

// Get возвращает плагин по типу или алиасу.
// Возвращает ErrUnknownPluginType, если плагин не найден.
func (r *Registry) Get(pluginType string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.lookup(pluginType)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPluginType, pluginType)
	}

	return p, nil
}

// Descriptors возвращает описания всех плагинов, отсортированные по типу.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.plugins))
	for _, p := range r.plugins {
		descs = append(descs, p.Descriptor())
	}
	sort.Slice(descs, func(i, j int) bool {
		return descs[i].ID < descs[j].ID
	})
	return descs
}

// Count возвращает количество зарегистрированных плагинов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

func (r *Registry) lookup(pluginType string) (Plugin, bool) {
	if p, ok := r.plugins[pluginType]; ok {
		return p, true
	}
	if primary, ok := r.aliases[pluginType]; ok {
		p, ok := r.plugins[primary]
		return p, ok
	}
	return nil, false
}

func (r *Registry) dropAliases(p Plugin) {
	for _, alias := range p.Aliases() {
		if r.aliases[alias] == p.Type() {
			delete(r.aliases, alias)
		}
	}
}
