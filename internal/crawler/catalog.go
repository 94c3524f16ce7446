package crawler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const catalogFileMode = 0o644

// Catalog maps story ids to urls and remembers discovery order
type Catalog struct {
	order []string
	urls  map[string]string
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{urls: make(map[string]string)}
}

// Add records an entry. The first url seen for an id wins.
func (c *Catalog) Add(id, url string) bool {
	if _, exists := c.urls[id]; exists {
		return false
	}
	c.order = append(c.order, id)
	c.urls[id] = url
	return true
}

// Get returns the url recorded for id
func (c *Catalog) Get(id string) (string, bool) {
	url, ok := c.urls[id]
	return url, ok
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	return len(c.order)
}

// Entries returns the entries in discovery order
func (c *Catalog) Entries() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(c.order))
	for _, id := range c.order {
		entries = append(entries, CatalogEntry{ID: id, URL: c.urls[id]})
	}
	return entries
}

// MarshalJSON encodes the catalog as an object whose keys keep discovery order
func (c *Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, id); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeString(&buf, c.urls[id]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeString encodes s without HTML escaping
func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// UnmarshalJSON decodes an id -> url object, preserving key order
func (c *Catalog) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("catalog must be a JSON object")
	}

	*c = *NewCatalog()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("catalog key %v is not a string", tok)
		}
		var url string
		if err := dec.Decode(&url); err != nil {
			return fmt.Errorf("catalog entry %s: %w", id, err)
		}
		c.Add(id, url)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// SaveCatalog writes a pretty-printed snapshot of the catalog to path
func SaveCatalog(path string, c *Catalog) error {
	raw, err := c.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	// json.MarshalIndent would re-escape & < > in urls
	var data bytes.Buffer
	if err := json.Indent(&data, raw, "", "    "); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	data.WriteByte('\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create catalog file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Chmod(catalogFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadCatalog reads a snapshot written by SaveCatalog
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	catalog := NewCatalog()
	if err := json.Unmarshal(data, catalog); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", path, err)
	}
	return catalog, nil
}
