package i18n

import (
	"fmt"
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Translations maps a language to key/message pairs
type Translations map[language.Tag]map[string]string

// Localizer resolves translation keys for one language
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
	keys    map[string]struct{}
}

// New builds a localizer for lang from the given translation sets. English
// is the fallback language.
func New(lang string, sets ...Translations) (*Localizer, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	keys := make(map[string]struct{})
	supported := []language.Tag{language.English}

	for _, set := range sets {
		for tag, msgs := range set {
			if !slices.Contains(supported, tag) {
				supported = append(supported, tag)
			}
			for key, msg := range msgs {
				if err := b.SetString(tag, key, msg); err != nil {
					return nil, fmt.Errorf("failed to add %s translation for %q: %w", tag, key, err)
				}
				keys[key] = struct{}{}
			}
		}
	}

	tag := language.English
	if lang != "" {
		if _, idx, conf := language.NewMatcher(supported).Match(language.Make(lang)); conf != language.No {
			tag = supported[idx]
		}
	}
	return &Localizer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
		keys:    keys,
	}, nil
}

// Language returns the matched language
func (l *Localizer) Language() language.Tag {
	return l.tag
}

// Localize returns the translation for key, or the key itself when no
// translation exists
func (l *Localizer) Localize(key string) string {
	if _, ok := l.keys[key]; !ok {
		return key
	}
	return l.printer.Sprintf(key)
}
