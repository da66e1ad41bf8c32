package parser

import (
	"os"
	"strings"
)

// maxDecodeSegments bounds the DFS so adversarial directory names can't
// blow up the search; beyond it we return the literal string.
const maxDecodeSegments = 64

// DecodeProjectDir reconstructs a filesystem path from a log directory
// name in which path separators were collapsed into '-'. The encoding is
// ambiguous whenever a directory name itself contains '-': the name
// "-Users-a-my-project" could mean /Users/a/my-project or
// /Users/a/my/project. We resolve by depth-first search over separator
// choices, pruning on directory existence, and accept the first decoding
// that names an existing path. This is a best-effort heuristic, not a
// guaranteed inverse; when nothing on disk matches, the literal input is
// returned unchanged.
func DecodeProjectDir(name string) string {
	if !strings.HasPrefix(name, "-") {
		return name
	}

	parts := strings.Split(strings.TrimPrefix(name, "-"), "-")
	if len(parts) == 0 || len(parts) > maxDecodeSegments {
		return name
	}

	if decoded, ok := decodeDFS("", parts); ok {
		return decoded
	}
	return name
}

// decodeDFS tries to place the remaining parts under prefix. At each
// boundary the '-' is first treated as a genuine separator (requires the
// extended prefix to exist on disk), then as a literal character in the
// current segment.
func decodeDFS(prefix string, parts []string) (string, bool) {
	if len(parts) == 0 {
		if isDir(prefix) {
			return prefix, true
		}
		return "", false
	}

	// Consume one or more parts as a single '-'-joined segment
	segment := ""
	for i, part := range parts {
		if segment == "" {
			segment = part
		} else {
			segment += "-" + part
		}

		candidate := prefix + "/" + segment
		if !isDir(candidate) {
			continue
		}
		if decoded, ok := decodeDFS(candidate, parts[i+1:]); ok {
			return decoded, true
		}
	}

	// Last resort: all remaining parts form one literal segment that
	// exists but was skipped above only if it isn't a directory at all.
	candidate := prefix + "/" + strings.Join(parts, "-")
	if pathExists(candidate) {
		return candidate, true
	}
	return "", false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
