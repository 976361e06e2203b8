package library

import (
	"encoding/json"
	"time"
)

// Metadata describes a stored recording. It is persisted as msgpack in
// the meta partition and served as JSON.
type Metadata struct {
	Name    string    `json:"name" msgpack:"name"`
	Date    time.Time `json:"date" msgpack:"date"`
	Tags    []string  `json:"tags" msgpack:"tags"`
	Indexed bool      `json:"indexed" msgpack:"indexed"`
}

// UnmarshalJSON decodes metadata with default-open indexing: a body that
// omits "indexed" means indexed, so only an explicit false suppresses it.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name    string    `json:"name"`
		Date    time.Time `json:"date"`
		Tags    []string  `json:"tags"`
		Indexed *bool     `json:"indexed"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Name = aux.Name
	m.Date = aux.Date
	m.Tags = aux.Tags
	if m.Tags == nil {
		m.Tags = []string{}
	}
	m.Indexed = aux.Indexed == nil || *aux.Indexed
	return nil
}
