package search

import "github.com/amaydixit11/deltacrdt/internal/crdt"

// IndexLWWMap reindexes the string value of each key in keys under
// collection, removing keys that hold no live string value in m. Keys
// of m not listed in keys are not touched.
func (i *Index) IndexLWWMap(collection string, m *crdt.LWWMap, keys []string) error {
	for _, key := range keys {
		v, ok := m.GetString(key)
		if !ok {
			if err := i.RemoveValue(collection, key); err != nil {
				return err
			}
			continue
		}
		if err := i.IndexValue(collection, key, v); err != nil {
			return err
		}
	}
	return nil
}

// IndexMVMap reindexes the concurrently-retained string values under
// collection, joining them with a space so every variant remains
// searchable through one document per key.
func (i *Index) IndexMVMap(collection string, m *crdt.MVMap, keys []string) error {
	for _, key := range keys {
		vs, ok := m.GetStrings(key)
		if !ok {
			if err := i.RemoveValue(collection, key); err != nil {
				return err
			}
			continue
		}
		joined := ""
		for n, v := range vs {
			if n > 0 {
				joined += " "
			}
			joined += v
		}
		if err := i.IndexValue(collection, key, joined); err != nil {
			return err
		}
	}
	return nil
}
