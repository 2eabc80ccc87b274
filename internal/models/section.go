package models

// Embed colors shared by all report sections.
const (
	ColorGreen   = 0x00FF00
	ColorYellow  = 0xFFFF00
	ColorRed     = 0xFF0000
	ColorGray    = 0x808080
	ColorOrange  = 0xFF9900
	ColorBlue    = 0x3498DB
	ColorPurple  = 0x9B59B6
	ColorSoftRed = 0xFF6B6B
	ColorTeal    = 0x00D4AA
	ColorBlurple = 0x5865F2
	ColorCoral   = 0xFF7F50
)

// Field is a name/value pair rendered inside a section.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Section is a display-ready slice of a report, independent of how the
// chat platform renders it.
type Section struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      string  `json:"footer,omitempty"`
}

// AddField appends a field and returns the section for chaining.
func (s *Section) AddField(name, value string, inline bool) *Section {
	s.Fields = append(s.Fields, Field{Name: name, Value: value, Inline: inline})
	return s
}

// Reply is what a command or a matched phrase answers with.
type Reply struct {
	Content  string    `json:"content,omitempty"`
	Sections []Section `json:"sections,omitempty"`
}

// TextReply builds a reply carrying only text.
func TextReply(content string) Reply {
	return Reply{Content: content}
}

// SectionReply builds a reply with optional leading text.
func SectionReply(content string, sections ...Section) Reply {
	return Reply{Content: content, Sections: sections}
}
