package presets

import (
	"regexp"
	"strings"
)

const maxFileStem = 80

var (
	unsafeFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\s]+`)
	repeatedDashes  = regexp.MustCompile(`[-_]{2,}`)
)

// FileName returns a download name for the preset's config, derived from its
// name and falling back to its id.
func (p *Preset) FileName() string {
	stem := unsafeFileChars.ReplaceAllString(strings.TrimSpace(p.Name), "-")
	stem = repeatedDashes.ReplaceAllString(stem, "-")
	stem = strings.Trim(stem, "-.")
	if len(stem) > maxFileStem {
		// back off to a rune boundary
		cut := maxFileStem
		for cut > 0 && !isRuneStart(stem[cut]) {
			cut--
		}
		stem = strings.TrimRight(stem[:cut], "-.")
	}
	if stem == "" {
		stem = "preset-" + p.ID.String()[:8]
	}
	return stem + ".cfg"
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
