package manifest

import (
	"encoding/json"
	"path"
	"sort"
	"strings"

	"github.com/modpack-run/modsync/pkg/errors"
	"github.com/modpack-run/modsync/pkg/hash"
)

// The manifest document comes in two shapes: the categorized document with a
// top-level "modpack" key, and the older flat mapping from filename to
// download info. The distinction is resolved here and doesn't exist anywhere
// past the parser.

type categorizedDocument struct {
	Modpack categorizedModpack `json:"modpack"`
}

type categorizedModpack struct {
	Name    string             `json:"name"`
	Version string             `json:"version"`
	Mods    []categorizedEntry `json:"mods"`
	Configs []categorizedEntry `json:"configs"`
}

type categorizedEntry struct {
	Name string `json:"name,omitempty"`

	// Mod entries historically use "file" for their relative path, and
	// config entries use "path". Both are accepted for either category.
	File string `json:"file,omitempty"`
	Path string `json:"path,omitempty"`

	URL    string `json:"url,omitempty"`
	SHA256 string `json:"sha256"`
}

type legacyEntry struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// Parse decodes a manifest document into a Manifest, detecting which schema
// the document uses. Malformed JSON, invalid digests, and duplicate paths
// all surface as a ParseError.
func Parse(data []byte) (Manifest, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Manifest{}, errors.ParseError{Cause: err}
	}

	var m Manifest
	var err error
	if _, ok := probe["modpack"]; ok {
		m, err = parseCategorized(data)
	} else {
		m, err = parseLegacy(probe)
	}
	if err != nil {
		return Manifest{}, err
	}

	if err := m.validate(); err != nil {
		return Manifest{}, errors.ParseError{Cause: err}
	}
	return m, nil
}

func parseCategorized(data []byte) (Manifest, error) {
	var doc categorizedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Manifest{}, errors.ParseError{Cause: err}
	}

	m := Manifest{
		Name:    doc.Modpack.Name,
		Version: doc.Modpack.Version,
	}

	mods, err := normalizeEntries(CategoryMods, doc.Modpack.Mods)
	if err != nil {
		return Manifest{}, err
	}
	m.Categories = append(m.Categories, Category{Name: CategoryMods, Entries: mods})

	configs, err := normalizeEntries(CategoryConfigs, doc.Modpack.Configs)
	if err != nil {
		return Manifest{}, err
	}
	m.Categories = append(m.Categories, Category{Name: CategoryConfigs, Entries: configs})

	return m, nil
}

func normalizeEntries(category string, raw []categorizedEntry) ([]Entry, error) {
	var entries []Entry
	for _, e := range raw {
		rawPath := e.File
		if rawPath == "" {
			rawPath = e.Path
		}
		if rawPath == "" {
			return nil, errors.ParseError{Cause: errors.MissingFieldError{Field: "file"}}
		}

		d, err := hash.Parse(e.SHA256)
		if err != nil {
			return nil, errors.ParseError{Cause: err}
		}

		relPath := trimCategoryPrefix(rawPath, category)
		name := e.Name
		if name == "" {
			name = path.Base(relPath)
		}

		entries = append(entries, Entry{
			Name:   name,
			Path:   relPath,
			Source: e.URL,
			SHA256: d,
		})
	}
	return entries, nil
}

// trimCategoryPrefix normalizes a document path into a category-relative
// path. Older generators emitted paths relative to the publishing repository
// (e.g. "your-modpack-repo/mods/foo.jar"), so everything up to and including
// the last path element naming the category is stripped.
func trimCategoryPrefix(rawPath, category string) string {
	cleaned := path.Clean(strings.ReplaceAll(rawPath, "\\", "/"))
	elems := strings.Split(cleaned, "/")

	// "configs" entries historically live under a directory named "config".
	singular := strings.TrimSuffix(category, "s")
	for i := len(elems) - 2; i >= 0; i-- {
		if elems[i] == category || elems[i] == singular {
			return path.Join(elems[i+1:]...)
		}
	}
	return cleaned
}

func parseLegacy(raw map[string]json.RawMessage) (Manifest, error) {
	// Sort the filenames so that parsing is deterministic; the legacy schema
	// is a JSON object and carries no meaningful order of its own.
	var names []string
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var entries []Entry
	for _, name := range names {
		var e legacyEntry
		if err := json.Unmarshal(raw[name], &e); err != nil {
			return Manifest{}, errors.ParseError{Cause: err}
		}
		if e.URL == "" {
			return Manifest{}, errors.ParseError{Cause: errors.MissingFieldError{Field: "url"}}
		}

		d, err := hash.Parse(e.SHA256)
		if err != nil {
			return Manifest{}, errors.ParseError{Cause: err}
		}

		entries = append(entries, Entry{
			Name:   name,
			Path:   name,
			Source: e.URL,
			SHA256: d,
		})
	}

	// The legacy schema only ever described mods.
	return Manifest{
		Categories: []Category{{Name: CategoryMods, Entries: entries}},
	}, nil
}

// Marshal encodes the manifest as a categorized document. The legacy flat
// schema is parse-only.
func Marshal(m Manifest) ([]byte, error) {
	doc := categorizedDocument{
		Modpack: categorizedModpack{
			Name:    m.Name,
			Version: m.Version,
			Mods:    []categorizedEntry{},
			Configs: []categorizedEntry{},
		},
	}

	for _, cat := range m.Categories {
		for _, e := range cat.Entries {
			encoded := categorizedEntry{
				Name:   e.Name,
				URL:    e.Source,
				SHA256: e.SHA256.Encoded(),
			}

			switch cat.Name {
			case CategoryMods:
				encoded.File = e.Path
				doc.Modpack.Mods = append(doc.Modpack.Mods, encoded)
			case CategoryConfigs:
				encoded.Path = e.Path
				doc.Modpack.Configs = append(doc.Modpack.Configs, encoded)
			default:
				return nil, errors.New("unknown category " + cat.Name)
			}
		}
	}

	return json.MarshalIndent(doc, "", "    ")
}
