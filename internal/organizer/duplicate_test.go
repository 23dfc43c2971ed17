package organizer

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func takenSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestExists(t *testing.T) {
	tempDir := t.TempDir()

	if Exists(filepath.Join(tempDir, "nonexistent.mp3")) {
		t.Error("Exists returned true for non-existent file")
	}

	existing := filepath.Join(tempDir, "existing.mp3")
	if err := os.WriteFile(existing, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if !Exists(existing) {
		t.Error("Exists returned false for existing file")
	}

	dangling := filepath.Join(tempDir, "dangling")
	if err := os.Symlink(filepath.Join(tempDir, "gone"), dangling); err == nil && !Exists(dangling) {
		t.Error("Exists returned false for dangling symlink")
	}
}

func TestGenerateDuplicateName(t *testing.T) {
	tests := []struct {
		name  string
		taken []string
		input string
		isDir bool
		want  string
	}{
		{"no conflict", nil, "Track 01.mp3", false, "Track 01.mp3"},
		{"first duplicate", []string{"Track 01.mp3"}, "Track 01.mp3", false, "Track 01_duplicate.mp3"},
		{"second duplicate", []string{"Track 01.mp3", "Track 01_duplicate.mp3"}, "Track 01.mp3", false, "Track 01_duplicate_2.mp3"},
		{"third duplicate", []string{"a.mp3", "a_duplicate.mp3", "a_duplicate_2.mp3"}, "a.mp3", false, "a_duplicate_3.mp3"},
		{"input already a duplicate", []string{"a_duplicate.mp3"}, "a_duplicate.mp3", false, "a_duplicate_2.mp3"},
		{"input already numbered", []string{"a_duplicate_4.mp3"}, "a_duplicate_4.mp3", false, "a_duplicate_5.mp3"},
		{"no extension", []string{"README"}, "README", false, "README_duplicate"},
		{"multiple dots", []string{"live.at.wembley.flac"}, "live.at.wembley.flac", false, "live.at.wembley_duplicate.flac"},
		{"directory keeps dots", []string{"Vol. 2"}, "Vol. 2", true, "Vol. 2_duplicate"},
		{"directory second duplicate", []string{"Album", "Album_duplicate"}, "Album", true, "Album_duplicate_2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateDuplicateName(takenSet(tt.taken...), tt.input, tt.isDir)
			if got != tt.want {
				t.Errorf("GenerateDuplicateName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// genFilenameWithExtension generates a filename with a common audio extension.
func genFilenameWithExtension() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOfN(8, gen.AlphaNumChar()).Map(func(chars []rune) string { return string(chars) }),
		gen.OneConstOf(".mp3", ".flac", ".m4a", ".ogg", ".wav"),
	).Map(func(vals []interface{}) string {
		return vals[0].(string) + vals[1].(string)
	})
}

func TestDuplicateNaming_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("generated duplicate names are free and keep the extension", prop.ForAll(
		func(filename string, numExisting int) bool {
			ext := filepath.Ext(filename)
			baseName := strings.TrimSuffix(filename, ext)

			existing := []string{filename}
			for i := 0; i < numExisting; i++ {
				if i == 0 {
					existing = append(existing, baseName+"_duplicate"+ext)
				} else {
					existing = append(existing, baseName+"_duplicate_"+strconv.Itoa(i+1)+ext)
				}
			}
			taken := takenSet(existing...)

			result := GenerateDuplicateName(taken, filename, false)
			if taken(result) {
				t.Logf("Generated name %q conflicts with an existing name", result)
				return false
			}
			if filepath.Ext(result) != ext {
				t.Logf("Generated name %q lost extension %q", result, ext)
				return false
			}

			want := baseName + "_duplicate" + ext
			if numExisting > 0 {
				want = baseName + "_duplicate_" + strconv.Itoa(numExisting+1) + ext
			}
			if result != want {
				t.Logf("Generated name %q, want %q", result, want)
				return false
			}
			return true
		},
		genFilenameWithExtension(),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
