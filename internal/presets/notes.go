package presets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// Notes is the free-form markdown attached to a preset. Only the source is
// stored; HTML is rendered on demand.
type Notes struct {
	Source string

	html *template.HTML
}

var (
	bfRenderer = blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.Safelink | blackfriday.NofollowLinks | blackfriday.HrefTargetBlank | blackfriday.Smartypants | blackfriday.SmartypantsDashes,
	})
	bfExtensions = blackfriday.NoIntraEmphasis | blackfriday.Tables | blackfriday.FencedCode | blackfriday.Autolink | blackfriday.Strikethrough | blackfriday.SpaceHeadings
	policy       = bluemonday.UGCPolicy()
	strict       = bluemonday.StrictPolicy()
)

func NewNotes(source string) *Notes {
	return &Notes{Source: source}
}

func (n *Notes) markdown() []byte {
	return blackfriday.Run([]byte(n.Source),
		blackfriday.WithRenderer(bfRenderer),
		blackfriday.WithExtensions(bfExtensions),
	)
}

// HTML renders the notes into sanitized HTML.
func (n *Notes) HTML() template.HTML {
	if n.Source == "" {
		return ""
	}
	if n.html != nil {
		return *n.html
	}
	h := template.HTML(bytes.TrimSpace(policy.SanitizeBytes(n.markdown())))
	n.html = &h
	return h
}

// Excerpt returns at most max runes of tag-free text, for list views.
func (n *Notes) Excerpt(max int) string {
	if n.Source == "" {
		return ""
	}
	text := string(bytes.TrimSpace(strict.SanitizeBytes(n.markdown())))
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "…"
}

type notesJSON struct {
	Source string        `json:"source"`
	HTML   template.HTML `json:"html"`
}

func (n *Notes) MarshalJSON() ([]byte, error) {
	return json.Marshal(notesJSON{Source: n.Source, HTML: n.HTML()})
}

// UnmarshalJSON accepts either a plain string or the object form written by
// MarshalJSON.
func (n *Notes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n.Source = s
		n.html = nil
		return nil
	}
	var obj notesJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("Notes.UnmarshalJSON: %w", err)
	}
	n.Source = obj.Source
	n.html = nil
	return nil
}
