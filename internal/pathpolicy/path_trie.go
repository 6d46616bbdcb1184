package pathpolicy

import (
	"sort"
	"strings"
)

// PathTrie stores a payload per path. Every node is one path element, the
// root node is "/".
type PathTrie struct {
	Name    string
	Paths   []*PathTrie
	Payload interface{}
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return []string{}
	}
	return strings.Split(p, "/")
}

// NewPathTrieFromMap builds a trie from absolute paths. Intermediate nodes
// without an entry of their own get the payload of their parent.
func NewPathTrieFromMap(entries map[string]interface{}) *PathTrie {
	root := &PathTrie{Payload: entries["/"]}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	// parents before children
	sort.Strings(keys)

	for _, k := range keys {
		node := root
		for _, name := range splitPath(k) {
			child := node.child(name)
			if child == nil {
				child = &PathTrie{Name: name, Payload: node.Payload}
				node.Paths = append(node.Paths, child)
			}
			node = child
		}
		node.Payload = entries[k]
	}
	return root
}

func (trie *PathTrie) child(name string) *PathTrie {
	for _, c := range trie.Paths {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Lookup returns the deepest node matching a prefix of path and the
// elements of path below it.
func (trie *PathTrie) Lookup(path string) (*PathTrie, []string) {
	elements := splitPath(path)
	node := trie
	for i, name := range elements {
		child := node.child(name)
		if child == nil {
			return node, elements[i:]
		}
		node = child
	}
	return node, []string{}
}
