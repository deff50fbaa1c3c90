package metatype

import (
	"bufio"
	"io"
	"strings"
)

// Bundle is a flat key/value message bundle used to resolve a
// "%key"-prefixed OCD/AD name or description, matching the source
// framework's ctkPluginLocalization resource-bundle lookup.
type Bundle struct {
	messages map[string]string
}

// LoadBundle reads a ".properties"-style "key = value" file (one entry
// per line, '#' starts a comment) from r.
func LoadBundle(r io.Reader) (*Bundle, error) {
	messages := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexAny(line, "=:")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		messages[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &Bundle{messages: messages}, nil
}

// Resolve returns raw unchanged unless it begins with "%", in which case
// the text after "%" is looked up in the bundle; an unresolved key falls
// back to the key text itself (with the "%" stripped), the same
// graceful-degradation ctkPluginLocalization applies rather than
// surfacing a missing-translation error to the caller.
func (b *Bundle) Resolve(raw string) string {
	if b == nil || !strings.HasPrefix(raw, "%") {
		return raw
	}
	key := raw[1:]
	if v, ok := b.messages[key]; ok {
		return v
	}
	return key
}
