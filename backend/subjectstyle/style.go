// Package subjectstyle maps free-text subject names to a stable colour and icon.
package subjectstyle

import (
	"strings"
	"unicode"
	"unicode/utf16"

	"learnhub/backend/models"
)

// Style is what a subject card is drawn with. Icon names follow the Ionicons set used by the clients.
type Style struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
	Name  string `json:"name"`
}

const (
	IconDefault = "book-outline"
	IconExam    = "document-text-outline"
)

// Default is returned for empty names.
var Default = Style{Color: "#6366F1", Icon: IconDefault, Name: "General"}

type look struct {
	color string
	icon  string
}

var (
	mathematics = look{"#3B82F6", "calculator-outline"}
	english     = look{"#EF4444", "book-outline"}
	literature  = look{"#EC4899", "library-outline"}
	biology     = look{"#22C55E", "leaf-outline"}
	chemistry   = look{"#A855F7", "flask-outline"}
	physics     = look{"#F97316", "magnet-outline"}
	economics   = look{"#14B8A6", "trending-up-outline"}
	government  = look{"#64748B", "business-outline"}
	geography   = look{"#0EA5E9", "earth-outline"}
	agriculture = look{"#84CC16", "nutrition-outline"}
	computing   = look{"#6366F1", "laptop-outline"}
	commerce    = look{"#F59E0B", "cart-outline"}
	accounting  = look{"#10B981", "cash-outline"}
	civics      = look{"#8B5CF6", "people-outline"}
	religion    = look{"#D97706", "bookmarks-outline"}
	history     = look{"#B45309", "time-outline"}
	management  = look{"#0F766E", "briefcase-outline"}
	enterprise  = look{"#DC2626", "rocket-outline"}
	science     = look{"#06B6D4", "beaker-outline"}
	arts        = look{"#DB2777", "color-palette-outline"}
	music       = look{"#7C3AED", "musical-notes-outline"}
	sports      = look{"#16A34A", "football-outline"}
)

// known is the fixed table, keyed by the canonical subject name.
var known = map[string]look{
	"Mathematics":                 mathematics,
	"English Language":            english,
	"Literature in English":       literature,
	"Biology":                     biology,
	"Chemistry":                   chemistry,
	"Physics":                     physics,
	"Economics":                   economics,
	"Government":                  government,
	"Geography":                   geography,
	"Agricultural Science":        agriculture,
	"Computer Studies":            computing,
	"Commerce":                    commerce,
	"Financial Accounting":        accounting,
	"Civic Education":             civics,
	"Christian Religious Studies": religion,
	"History":                     history,
}

// knownNormalized indexes the table by the title-cased form of each key.
var knownNormalized = func() map[string]look {
	m := make(map[string]look, len(known))
	for name, l := range known {
		m[titleCase(name)] = l
	}
	return m
}()

type rule struct {
	keywords []string
	look     look
}

// rules are checked in order against the lower-cased name; the first hit wins.
var rules = []rule{
	{[]string{"management"}, management},
	{[]string{"entrepreneur"}, enterprise},
	{[]string{"account"}, accounting},
	{[]string{"business", "commerce"}, commerce},
	{[]string{"math", "calc"}, mathematics},
	{[]string{"english", "literature"}, english},
	{[]string{"bio"}, biology},
	{[]string{"chem"}, chemistry},
	{[]string{"physic"}, physics},
	{[]string{"science"}, science},
	{[]string{"computer", "ict", "code", "tech"}, computing},
	{[]string{"art", "design"}, arts},
	{[]string{"music"}, music},
	{[]string{"geography"}, geography},
	{[]string{"history"}, history},
	{[]string{"civic", "law"}, civics},
	{[]string{"bible", "religious"}, religion},
	{[]string{"physical", "sport"}, sports},
}

// palette backs the hash fallback.
var palette = [10]string{
	"#3B82F6", "#EF4444", "#22C55E", "#A855F7", "#F97316",
	"#14B8A6", "#EC4899", "#0EA5E9", "#F59E0B", "#64748B",
}

// Resolve returns the style for name. It is pure and total.
func Resolve(name string) Style {
	if strings.TrimSpace(name) == "" {
		return Default
	}

	if l, ok := known[name]; ok {
		return l.style(name)
	}
	if l, ok := knownNormalized[titleCase(name)]; ok {
		return l.style(name)
	}

	lower := strings.ToLower(name)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.look.style(name)
			}
		}
	}

	return fallback(name, lower)
}

// ResolveSubject prefers the colour and icon stored on the row and fills the gaps from Resolve.
func ResolveSubject(s models.Subject) Style {
	st := Resolve(s.Name)
	if s.Color != nil && *s.Color != "" {
		st.Color = *s.Color
	}
	if s.Icon != nil && *s.Icon != "" {
		st.Icon = *s.Icon
	}
	return st
}

func (l look) style(name string) Style {
	return Style{Color: l.color, Icon: l.icon, Name: name}
}

func fallback(name, lower string) Style {
	icon := IconDefault
	if strings.Contains(lower, "exam") || strings.Contains(lower, "test") {
		icon = IconExam
	}
	return Style{Color: palette[hashIndex(name)], Icon: icon, Name: name}
}

// hashIndex is the 31-multiplier rolling hash over UTF-16 code units with 32-bit wraparound.
func hashIndex(name string) int {
	var h int32
	for _, u := range utf16.Encode([]rune(name)) {
		h = h*31 + int32(u)
	}
	n := int(h)
	if n < 0 {
		n = -n
	}
	return n % len(palette)
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		r := []rune(strings.ToLower(f))
		r[0] = unicode.ToUpper(r[0])
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}
