package state

import "fmt"

// AliasMap is the append-only dictionary mapping pool aliases to the
// original source base names. Extended per segmentation run; existing
// entries are never rewritten or removed.
type AliasMap struct {
	path    string
	Entries map[string]string
}

// LoadAliasMap reads the alias map at path, returning an empty map when the
// file doesn't exist yet.
func LoadAliasMap(path string) (*AliasMap, error) {
	m := &AliasMap{path: path, Entries: map[string]string{}}
	err := readJSON(path, &m.Entries)
	if err != nil && !notExist(err) {
		return nil, err
	}
	return m, nil
}

// Assign records alias → baseName and persists the whole map. Re-assigning
// an existing alias to a different name is an error; the map is append-only.
func (m *AliasMap) Assign(alias, baseName string) error {
	if prev, ok := m.Entries[alias]; ok && prev != baseName {
		return fmt.Errorf("alias %s already maps to %s", alias, prev)
	}
	m.Entries[alias] = baseName
	return writeJSON(m.path, m.Entries)
}
