// Package localization loads translation strings from JSON files, one file
// per language (e.g. "en.json"), and looks them up with an English fallback.
package localization

import (
	"embed"
	"encoding/json"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// DefaultLanguage is consulted when a key is missing in the requested one.
const DefaultLanguage = "en"

//go:embed locales/*.json
var bundled embed.FS

// Localizer holds translations keyed by language, then by message key.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer loads the translations compiled into the binary.
func NewLocalizer() (*Localizer, error) {
	return NewLocalizerFS(bundled, "locales")
}

// NewLocalizerFS loads every *.json file in dir of fsys.
func NewLocalizerFS(fsys fs.FS, dir string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read localization directory")
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read localization file %s", entry.Name())
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, errors.Wrapf(err, "failed to parse localization file %s", entry.Name())
		}

		l.translations[strings.TrimSuffix(entry.Name(), ".json")] = translations
	}

	return l, nil
}

// GetString returns the string for key in lang, then in DefaultLanguage, and
// finally the key itself.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if value, ok := l.translations[lang][key]; ok {
		return value
	}
	if value, ok := l.translations[DefaultLanguage][key]; ok {
		return value
	}
	return key
}

// Format looks key up like GetString and substitutes {name} placeholders
// from args.
func (l *Localizer) Format(lang, key string, args map[string]string) string {
	s := l.GetString(lang, key)
	if len(args) == 0 {
		return s
	}
	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Has reports whether translations for lang were loaded.
func (l *Localizer) Has(lang string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.translations[lang]
	return ok
}
