// Package search provides full-text search over the string values held
// in converged LWWMap/MVMap instances, using Bleve. Search never
// participates in merge: it only ever reads state a crdt.Registry has
// already converged to.
package search

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
)

// Index wraps Bleve for full-text search over CRDT string values.
type Index struct {
	index bleve.Index
	path  string
}

// document is a searchable (collection, key) -> value pair.
type document struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Value      string `json:"value"`
}

// NewIndex creates or opens a Bleve index at dataDir/search.bleve.
func NewIndex(dataDir string) (*Index, error) {
	indexPath := filepath.Join(dataDir, "search.bleve")

	idx, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		mapping := bleve.NewIndexMapping()

		docMapping := bleve.NewDocumentMapping()
		valueField := bleve.NewTextFieldMapping()
		valueField.Analyzer = "standard"
		docMapping.AddFieldMappingsAt("value", valueField)

		collectionField := bleve.NewTextFieldMapping()
		collectionField.Analyzer = "keyword"
		docMapping.AddFieldMappingsAt("collection", collectionField)

		mapping.AddDocumentMapping("document", docMapping)

		idx, err = bleve.New(indexPath, mapping)
		if err != nil {
			return nil, fmt.Errorf("search: create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("search: open index: %w", err)
	}

	return &Index{index: idx, path: indexPath}, nil
}

// NewMemoryIndex creates an in-memory index, for tests and short-lived demos.
func NewMemoryIndex() (*Index, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, err
	}
	return &Index{index: idx}, nil
}

func docID(collection, key string) string {
	return collection + "/" + key
}

// IndexValue upserts the searchable value at (collection, key).
func (i *Index) IndexValue(collection, key, value string) error {
	return i.index.Index(docID(collection, key), document{
		Collection: collection,
		Key:        key,
		Value:      value,
	})
}

// RemoveValue removes the (collection, key) document from the index,
// e.g. after a Delete/tombstone is observed in the source map.
func (i *Index) RemoveValue(collection, key string) error {
	return i.index.Delete(docID(collection, key))
}

// Result is one search hit.
type Result struct {
	Collection string
	Key        string
	Score      float64
}

// SearchOptions configures a query.
type SearchOptions struct {
	Collection string // restrict to one collection, if non-empty
	Limit      int
}

// Search runs a full-text match query against indexed values.
func (i *Index) Search(query string, opts SearchOptions) ([]Result, error) {
	valueQuery := bleve.NewMatchQuery(query)
	valueQuery.SetField("value")

	var q = bleve.Query(valueQuery)
	if opts.Collection != "" {
		collectionQuery := bleve.NewMatchQuery(opts.Collection)
		collectionQuery.SetField("collection")
		q = bleve.NewConjunctionQuery(valueQuery, collectionQuery)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = opts.Limit
	if req.Size <= 0 {
		req.Size = 50
	}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: query failed: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		collection, key, ok := splitDocID(hit.ID)
		if !ok {
			continue
		}
		results = append(results, Result{Collection: collection, Key: key, Score: hit.Score})
	}
	return results, nil
}

func splitDocID(id string) (collection, key string, ok bool) {
	for i := 0; i < len(id); i++ {
		if id[i] == '/' {
			return id[:i], id[i+1:], true
		}
	}
	return "", "", false
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// Delete removes the index from disk.
func (i *Index) Delete() error {
	i.index.Close()
	if i.path != "" {
		return os.RemoveAll(i.path)
	}
	return nil
}
