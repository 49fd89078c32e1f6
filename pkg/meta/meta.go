// Package meta collects the SEO metadata of the current page: the title,
// <meta name>, <meta property> and <link> tags.
package meta

import (
	"slices"
	"sync"

	"github.com/imago-dev/imago/pkg/view"
)

// Manager holds the metadata of the current page. Controllers fill it in
// SetMetaParams; the renderer writes it into the document head.
type Manager struct {
	mu         sync.RWMutex
	title      string
	names      map[string]string
	properties map[string]string
	links      map[string]string
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	m := &Manager{}
	m.Clear()
	return m
}

// Clear drops all metadata.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.title = ""
	m.names = make(map[string]string)
	m.properties = make(map[string]string)
	m.links = make(map[string]string)
}

func (m *Manager) SetTitle(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.title = title
}

func (m *Manager) Title() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.title
}

// SetMetaName sets a <meta name="..." content="..."> tag.
func (m *Manager) SetMetaName(name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[name] = content
}

func (m *Manager) MetaName(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.names[name]
}

// MetaNames returns the set names, sorted.
func (m *Manager) MetaNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.names)
}

// SetMetaProperty sets a <meta property="..." content="..."> tag, as used
// by Open Graph.
func (m *Manager) SetMetaProperty(property, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[property] = content
}

func (m *Manager) MetaProperty(property string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.properties[property]
}

// MetaProperties returns the set properties, sorted.
func (m *Manager) MetaProperties() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.properties)
}

// SetLink sets a <link rel="..." href="..."> tag.
func (m *Manager) SetLink(rel, href string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[rel] = href
}

func (m *Manager) Link(rel string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.links[rel]
}

// Links returns the set rel values, sorted.
func (m *Manager) Links() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.links)
}

// HeadNodes renders the meta and link tags, title excluded.
func (m *Manager) HeadNodes() []*view.Node {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var nodes []*view.Node
	for _, name := range sortedKeys(m.names) {
		nodes = append(nodes, view.Meta(view.Name(name), view.Content(m.names[name])))
	}
	for _, prop := range sortedKeys(m.properties) {
		nodes = append(nodes, view.Meta(view.Attr{Key: "property", Value: prop}, view.Content(m.properties[prop])))
	}
	for _, rel := range sortedKeys(m.links) {
		nodes = append(nodes, view.Link(view.Rel(rel), view.Href(m.links[rel])))
	}
	return nodes
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
