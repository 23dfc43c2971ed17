package organizer

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// duplicatePattern matches a base name carrying a _duplicate or _duplicate_N suffix.
var duplicatePattern = regexp.MustCompile(`^(.+)_duplicate(?:_(\d+))?$`)

// Exists reports whether anything, including a dangling symlink, sits at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// GenerateDuplicateName returns name unchanged when taken reports it free,
// otherwise the first free variant with a "_duplicate" suffix before the
// extension. Directories get the suffix at the end of the name.
//
// Examples:
//   - "file.mp3" -> "file_duplicate.mp3" (if file.mp3 is taken)
//   - "file_duplicate.mp3" -> "file_duplicate_2.mp3" (if file_duplicate.mp3 is taken)
//   - "file_duplicate_2.mp3" -> "file_duplicate_3.mp3" (if file_duplicate_2.mp3 is taken)
func GenerateDuplicateName(taken func(name string) bool, name string, isDir bool) string {
	if !taken(name) {
		return name
	}

	ext := ""
	if !isDir {
		ext = filepath.Ext(name)
		if ext == name {
			ext = ""
		}
	}
	base := strings.TrimSuffix(name, ext)

	next := 0
	if m := duplicatePattern.FindStringSubmatch(base); m != nil {
		base = m[1]
		next = 2
		if m[2] != "" {
			n, _ := strconv.Atoi(m[2])
			next = n + 1
		}
	}

	if next == 0 {
		candidate := base + "_duplicate" + ext
		if !taken(candidate) {
			return candidate
		}
		next = 2
	}

	for n := next; ; n++ {
		candidate := base + "_duplicate_" + strconv.Itoa(n) + ext
		if !taken(candidate) {
			return candidate
		}
	}
}
