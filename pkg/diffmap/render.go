package diffmap

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"
)

const (
	maxRenderLines  = 10000
	truncateMessage = "... (diff truncated, exceeds 10,000 lines) ..."
)

// Render produces a unified-diff preview of two nested maps for
// human-readable change comments. Both sides are dumped as YAML with a
// stable key order before diffing. Returns an empty string when the
// sides render identically.
func Render(old, new map[string]any) (string, error) {
	oldDump, err := dumpYAML(old)
	if err != nil {
		return "", err
	}
	newDump, err := dumpYAML(new)
	if err != nil {
		return "", err
	}

	if oldDump == newDump {
		return "", nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldDump, newDump, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- old\n")
	fmt.Fprintf(&buf, "+++ new\n")

	for _, diff := range diffs {
		text := diff.Text
		lines := strings.Split(text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" && strings.HasSuffix(text, "\n") {
			lines = lines[:len(lines)-1]
		}

		var prefix string
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			prefix = " "
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}

		for _, line := range lines {
			buf.WriteString(prefix)
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}

	result := buf.String()
	lines := strings.Split(result, "\n")
	if len(lines) > maxRenderLines {
		truncated := strings.Join(lines[:maxRenderLines], "\n")
		return truncated + "\n" + truncateMessage + "\n", nil
	}

	return result, nil
}

// dumpYAML renders a map as indented block-style YAML. yaml.v3 sorts
// map keys, which keeps dumps stable across runs.
func dumpYAML(v map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
