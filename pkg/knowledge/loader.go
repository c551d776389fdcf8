package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRulesFile is the mandatory rules file inside the knowledge directory.
const DefaultRulesFile = "responses.json"

type ruleRecord struct {
	Keywords  []string `json:"keywords" yaml:"keywords"`
	Reponses  []string `json:"reponses" yaml:"reponses"`
	Templates []string `json:"templates" yaml:"templates"`
}

type factRecord struct {
	Response *string `json:"response" yaml:"response"`
	Function string  `json:"function" yaml:"function"`
}

// Loader reads a knowledge directory into a Base.
type Loader struct {
	Dir       string
	RulesFile string
	Functions FunctionSet
}

// NewLoader creates a loader for dir. functions may be nil, in which case any
// fact declaring a function is rejected.
func NewLoader(dir, rulesFile string, functions FunctionSet) *Loader {
	if rulesFile == "" {
		rulesFile = DefaultRulesFile
	}
	return &Loader{Dir: dir, RulesFile: rulesFile, Functions: functions}
}

// Load reads the rules file first, then every other *.json / *.yaml / *.yml
// file below Dir sorted by path. A fact key seen earlier is never overwritten.
func (l *Loader) Load() (*Base, error) {
	base := &Base{LoadedAt: time.Now()}

	rulesPath := filepath.Join(l.Dir, l.RulesFile)
	data, err := os.ReadFile(rulesPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRulesFileMissing, rulesPath)
		}
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	if err := l.loadRules(base, rulesPath, data); err != nil {
		return nil, err
	}
	base.Sources = append(base.Sources, rulesPath)

	files, err := l.auxFiles(rulesPath)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := l.loadFacts(base, seen, path, data); err != nil {
			return nil, err
		}
		base.Sources = append(base.Sources, path)
	}

	return base, nil
}

func (l *Loader) auxFiles(rulesPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == rulesPath {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk knowledge dir: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// loadRules keeps file order. A repeated id replaces the earlier record in
// place, the same as a JSON object with a duplicate key.
func (l *Loader) loadRules(base *Base, path string, data []byte) error {
	var rules []Rule
	index := make(map[string]int)

	err := decodeOrdered(path, data, func(id string, decode func(any) error) error {
		var rec ruleRecord
		if err := decode(&rec); err != nil {
			return fmt.Errorf("%s: rule %q: %w", path, id, err)
		}
		templates := rec.Reponses
		if len(templates) == 0 {
			templates = rec.Templates
		}
		rule := NewRule(id, rec.Keywords, templates)
		if i, dup := index[id]; dup {
			rules[i] = rule
			return nil
		}
		index[id] = len(rules)
		rules = append(rules, rule)
		return nil
	})
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if len(rule.Keywords) > 0 && len(rule.Templates) == 0 {
			return fmt.Errorf("%s: rule %q: %w", path, rule.ID, ErrEmptyTemplates)
		}
	}
	base.Rules = append(base.Rules, rules...)
	return nil
}

// loadFacts skips keys already loaded from an earlier file. Inside one file
// a repeated key replaces the earlier record in place, as for rules.
func (l *Loader) loadFacts(base *Base, seen map[string]struct{}, path string, data []byte) error {
	var records []factRecord
	var keys []string
	index := make(map[string]int)

	err := decodeOrdered(path, data, func(key string, decode func(any) error) error {
		if _, dup := seen[key]; dup {
			return nil
		}
		var rec factRecord
		if err := decode(&rec); err != nil {
			return fmt.Errorf("%s: fact %q: %w", path, key, err)
		}
		if i, dup := index[key]; dup {
			records[i] = rec
			return nil
		}
		index[key] = len(records)
		keys = append(keys, key)
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return err
	}

	for i, rec := range records {
		key := keys[i]
		if rec.Response == nil {
			return fmt.Errorf("%s: fact %q: %w", path, key, ErrMissingResponse)
		}
		if rec.Function != "" && (l.Functions == nil || !l.Functions.Has(rec.Function)) {
			return fmt.Errorf("%s: fact %q: %w: %s", path, key, ErrUnknownFunction, rec.Function)
		}
	}
	for i, rec := range records {
		seen[keys[i]] = struct{}{}
		base.Facts = append(base.Facts, NewFact(keys[i], *rec.Response, rec.Function))
	}
	return nil
}

// decodeOrdered walks the top-level object of a JSON or YAML document in
// document order, handing each value to fn through a decode callback.
func decodeOrdered(path string, data []byte, fn func(key string, decode func(any) error) error) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return decodeOrderedYAML(path, data, fn)
	}
	return decodeOrderedJSON(path, data, fn)
}

func decodeOrderedJSON(path string, data []byte, fn func(string, func(any) error) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%s: top-level value must be an object", path)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%s: key %q: %w", path, key, err)
		}
		if err := fn(key, func(v any) error { return json.Unmarshal(raw, v) }); err != nil {
			return err
		}
	}
	return nil
}

func decodeOrderedYAML(path string, data []byte, fn func(string, func(any) error) error) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: top-level value must be a mapping", path)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		value := root.Content[i+1]
		if err := fn(key, value.Decode); err != nil {
			return err
		}
	}
	return nil
}
