// Package i18n loads gettext message catalogs for the trans filter.
//
// Catalogs are read from PO files, one per locale, named <locale>.po.  A
// lookup for a locale with no catalog of its own falls back to the more
// general locales derived from it (fr_CA -> fr).
package i18n

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/gettext/po"
	"golang.org/x/text/language"
)

// FileOpener opens the PO file for a locale.
type FileOpener interface {
	// Open returns the PO file for locale, or nil if it does not exist.
	Open(locale string) (io.ReadCloser, error)
}

// Catalogs holds the catalogs of several locales.
type Catalogs struct {
	catalogs map[string]*Catalog
}

// Load reads the catalog for each of the given locales from opener.  A locale
// with no file of its own is loaded from its first fallback that has one; a
// locale with no file at all is skipped.
func Load(opener FileOpener, locales []string) (*Catalogs, error) {
	var result = &Catalogs{make(map[string]*Catalog)}
	for _, locale := range locales {
		r, err := opener.Open(locale)
		if err != nil {
			return nil, err
		}
		if r == nil {
			tag, err := language.Parse(locale)
			if err != nil {
				return nil, err
			}
			for _, fb := range fallbacks(tag) {
				if r, err = opener.Open(fb.String()); err != nil {
					return nil, err
				}
				if r != nil {
					break
				}
			}
			if r == nil {
				continue
			}
		}

		cat, err := Parse(locale, r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", locale, err)
		}
		result.catalogs[locale] = cat
	}
	return result, nil
}

type dirOpener string

func (dir dirOpener) Open(locale string) (io.ReadCloser, error) {
	switch f, err := os.Open(filepath.Join(string(dir), locale+".po")); {
	case os.IsNotExist(err):
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return f, nil
	}
}

// Dir loads every <locale>.po file found in dirname.
func Dir(dirname string) (*Catalogs, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	var locales []string
	for _, entry := range entries {
		var name = entry.Name()
		if !entry.IsDir() && strings.HasSuffix(name, ".po") {
			locales = append(locales, strings.TrimSuffix(name, ".po"))
		}
	}
	return Load(dirOpener(dirname), locales)
}

// Catalog returns the catalog for locale, trying its fallbacks when there is
// no exact match.  It returns nil if none is found.
func (c *Catalogs) Catalog(locale string) *Catalog {
	if c == nil {
		return nil
	}
	if cat, ok := c.catalogs[locale]; ok {
		return cat
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil
	}
	for _, fb := range fallbacks(tag) {
		if cat, ok := c.catalogs[fb.String()]; ok {
			return cat
		}
	}
	return nil
}

// Catalog holds the translations of one locale.  A nil *Catalog translates
// every message to itself.
type Catalog struct {
	locale    string
	messages  map[string]po.Message
	pluralize po.PluralSelector
}

// Parse reads a PO file for locale.
func Parse(locale string, r io.Reader) (*Catalog, error) {
	file, err := po.Parse(r)
	if err != nil {
		return nil, err
	}
	var pluralize = file.Pluralize
	if pluralize == nil {
		pluralize = po.PluralSelectorForLanguage(locale)
	}
	if pluralize == nil {
		return nil, fmt.Errorf("Plural-Forms must be specified")
	}
	var cat = &Catalog{locale, make(map[string]po.Message), pluralize}
	for _, msg := range file.Messages {
		if msg.Id == "" {
			continue
		}
		cat.messages[key(msg.Ctxt, msg.Id)] = msg
	}
	return cat, nil
}

func key(ctxt, id string) string {
	if ctxt == "" {
		return id
	}
	return ctxt + "\x04" + id
}

// Locale returns the locale the catalog was loaded for.
func (c *Catalog) Locale() string {
	if c == nil {
		return ""
	}
	return c.locale
}

// Translate returns the translation of msgid, or msgid itself if there is none.
func (c *Catalog) Translate(msgid string) string {
	return c.TranslateContext("", msgid)
}

// TranslateContext is Translate for a message disambiguated by msgctxt.
func (c *Catalog) TranslateContext(ctxt, msgid string) string {
	if c == nil {
		return msgid
	}
	if msg, ok := c.messages[key(ctxt, msgid)]; ok && len(msg.Str) > 0 && msg.Str[0] != "" {
		return msg.Str[0]
	}
	return msgid
}

// TranslatePlural returns the plural form of msgid selected by n.  Without a
// translation it returns msgid when n is 1 and plural otherwise.
func (c *Catalog) TranslatePlural(msgid, plural string, n int) string {
	var untranslated = plural
	if n == 1 {
		untranslated = msgid
	}
	if c == nil {
		return untranslated
	}
	msg, ok := c.messages[key("", msgid)]
	if !ok {
		return untranslated
	}
	var i = c.pluralize(n)
	if i < 0 || i >= len(msg.Str) || msg.Str[i] == "" {
		return untranslated
	}
	return msg.Str[i]
}
