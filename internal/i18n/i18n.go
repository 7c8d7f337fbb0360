// Package i18n resolves user-facing strings from embedded YAML locales.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embeddedLocales embed.FS

// Translator holds flattened translations per language.
type Translator struct {
	mu           sync.RWMutex
	translations map[string]map[string]string // lang -> dotted key -> value
	defaultLang  string
}

// NewTranslator creates a Translator from the embedded locales.
func NewTranslator(defaultLang string) (*Translator, error) {
	sub, err := fs.Sub(embeddedLocales, "locales")
	if err != nil {
		return nil, fmt.Errorf("failed to access embedded locales: %w", err)
	}
	return NewTranslatorFromFS(sub, defaultLang)
}

// NewTranslatorFromFS creates a Translator from *.yaml files at the root of fsys.
// The file name without extension is the language code.
func NewTranslatorFromFS(fsys fs.FS, defaultLang string) (*Translator, error) {
	t := &Translator{
		translations: make(map[string]map[string]string),
		defaultLang:  defaultLang,
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales directory: %w", err)
	}
	for _, e := range entries {
		ext := path.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		lang := strings.TrimSuffix(e.Name(), ext)
		values, err := loadLocale(fsys, e.Name())
		if err != nil {
			return nil, err
		}
		t.translations[lang] = values
	}

	if _, ok := t.translations[defaultLang]; !ok {
		return nil, fmt.Errorf("no locale for default language %q", defaultLang)
	}
	return t, nil
}

func loadLocale(fsys fs.FS, name string) (map[string]string, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read locale file %s: %w", name, err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(content, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse locale file %s: %w", name, err)
	}
	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

// flatten turns nested maps into dotted keys: {a: {b: x}} -> "a.b": x.
func flatten(prefix string, src map[string]any, dst map[string]string) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch child := v.(type) {
		case map[string]any:
			flatten(key, child, dst)
		case string:
			dst[key] = child
		default:
			dst[key] = fmt.Sprint(v)
		}
	}
}

// Get returns the translation of key in lang, falling back to the default
// language and finally to the key itself. With args the value is a
// fmt format string.
func (t *Translator) Get(lang, key string, args ...any) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if lang == "" {
		lang = t.defaultLang
	}
	val, ok := t.translations[lang][key]
	if !ok {
		val, ok = t.translations[t.defaultLang][key]
	}
	if !ok {
		val = key
	}

	if len(args) > 0 {
		return fmt.Sprintf(val, args...)
	}
	return val
}

// Languages returns the loaded language codes, sorted.
func (t *Translator) Languages() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	langs := make([]string, 0, len(t.translations))
	for lang := range t.translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
