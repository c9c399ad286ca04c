package recovery

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
)

// keyLineRE matches a postgresql.conf assignment line: optional leading
// whitespace, a bare identifier, '=', and the rest of the line (value plus
// any trailing comment). Comment-only and blank lines never match.
var keyLineRE = regexp.MustCompile(`^(\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*=\s*)(.*)$`)

// rewriteKeys rewrites the named keys in data to the given values (quoted
// as Postgres string literals) and returns the new file content. Lines for
// keys not present in the file are appended at the end. Every other line —
// comments, blank lines, unrelated keys — passes through byte-for-byte,
// honoring the "never text-substitution" / "differ only in
// recovery-target keys" invariants. This is a parse-rewrite, not a
// sed-style substitution: each line is individually classified before any
// byte of it is touched.
func rewriteKeys(data []byte, kv map[string]string) []byte {
	remaining := make(map[string]string, len(kv))
	for k, v := range kv {
		remaining[k] = v
	}

	lines := splitLinesKeepEnding(data)
	var out bytes.Buffer

	for _, line := range lines {
		trimmed, ending := stripLineEnding(line)
		m := keyLineRE.FindStringSubmatch(string(trimmed))
		if m != nil {
			key := m[2]
			if v, ok := remaining[key]; ok {
				fmt.Fprintf(&out, "%s%s='%s'%s", m[1], key, escapeConfValue(v), ending)
				delete(remaining, key)
				continue
			}
		}
		out.Write(line)
	}

	if out.Len() > 0 && !bytes.HasSuffix(out.Bytes(), []byte("\n")) {
		out.WriteByte('\n')
	}
	for _, key := range sortedKeys(remaining) {
		fmt.Fprintf(&out, "%s='%s'\n", key, escapeConfValue(remaining[key]))
	}

	return out.Bytes()
}

func escapeConfValue(v string) string {
	return regexp.MustCompile(`'`).ReplaceAllString(v, `''`)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// splitLinesKeepEnding splits data into lines, each retaining its trailing
// newline (if any) so the file can be reassembled exactly.
func splitLinesKeepEnding(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i+1])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

func stripLineEnding(line []byte) (content []byte, ending string) {
	if bytes.HasSuffix(line, []byte("\n")) {
		return line[:len(line)-1], "\n"
	}
	return line, ""
}
