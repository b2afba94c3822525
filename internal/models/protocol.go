package models

// ProtocolEntry is one row of the governance table
type ProtocolEntry struct {
	ID       string `json:"id" toml:"id" yaml:"id" validate:"required"`
	Keyword  string `json:"keyword" toml:"keyword" yaml:"keyword" validate:"required"`
	Citation string `json:"citation" toml:"citation" yaml:"citation" validate:"required"`
}

// ProtocolMatch is the resolver result. An empty Entries slice is an
// authoritative "no protocol" answer, not an error.
type ProtocolMatch struct {
	Entries      []ProtocolEntry `json:"entries"`
	TableVersion string          `json:"table_version"`
}

// Found distinguishes a match from the explicit no-match result
func (m ProtocolMatch) Found() bool {
	return len(m.Entries) > 0
}

// Citations returns the citation strings in table order
func (m ProtocolMatch) Citations() []string {
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Citation)
	}
	return out
}
