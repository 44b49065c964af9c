package lang

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalogue []byte

var (
	mu       sync.RWMutex
	messages map[string]string
)

func init() {
	m, _, err := parse(defaultCatalogue)
	if err != nil {
		panic(fmt.Sprintf("lang: embedded catalogue: %v", err))
	}
	messages = m
}

// Load overlays the catalogue at path on top of the embedded English
// messages. It returns the language that was activated.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	overlay, active, err := parse(data)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}

	base, _, _ := parse(defaultCatalogue)
	for k, v := range overlay {
		base[k] = v
	}

	mu.Lock()
	messages = base
	mu.Unlock()
	return active, nil
}

func parse(data []byte) (map[string]string, string, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, "", err
	}

	active := "en"
	if v, ok := raw["active_language"]; ok {
		if s, ok := v.(string); ok && s != "" {
			active = s
		}
	}

	block, ok := raw[active]
	if !ok {
		active = "en"
		block, ok = raw[active]
		if !ok {
			return map[string]string{}, active, nil
		}
	}

	blockMap, ok := block.(map[string]interface{})
	if !ok {
		return nil, "", fmt.Errorf("language block %q is not a map", active)
	}

	m := make(map[string]string, len(blockMap))
	for k, v := range blockMap {
		if s, ok := v.(string); ok {
			m[k] = s
		}
	}
	return m, active, nil
}

// T looks up key and substitutes {name} placeholders from alternating
// name/value pairs. Unknown keys render as "{key}".
func T(key string, pairs ...string) string {
	mu.RLock()
	s, ok := messages[key]
	mu.RUnlock()

	if !ok {
		return "{" + key + "}"
	}

	for j := 0; j+1 < len(pairs); j += 2 {
		s = strings.ReplaceAll(s, "{"+pairs[j]+"}", pairs[j+1])
	}
	return s
}
