package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	path := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func sourcePaths(content *ExtractedContent) []string {
	paths := make([]string, 0, len(content.Source))
	for _, f := range content.Source {
		paths = append(paths, f.Path)
	}
	return paths
}

func TestFilterRepo_Classification(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "README.md", "# Demo project\nA demo repository used in tests.")
	writeFile(t, root, "main.py", "def main():\n    print('hello world')\n")
	writeFile(t, root, "tiny.py", "x=1")                                  // 5 bytes, below minimum
	writeFile(t, root, "huge.py", strings.Repeat("a", 2*1024*1024))       // above maximum
	writeFile(t, root, "logo.png", "not really an image but ignored ext") // ignored extension

	content, err := FilterRepo(root)
	require.NoError(t, err)

	require.Len(t, content.Important, 1)
	assert.Equal(t, "README.md", content.Important[0].Path)
	assert.Equal(t, "readme", content.Important[0].Category)
	assert.Contains(t, content.Important[0].Content, "Demo project")

	require.Len(t, content.Source, 1)
	assert.Equal(t, "main.py", content.Source[0].Path)
}

func TestFilterRepo_PrunesIgnoredDirs(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "app.js", "console.log('app entrypoint');")
	writeFile(t, root, "node_modules/lib/index.js", "console.log('vendored dependency');")
	writeFile(t, root, "vendor/pkg/util.go", "package pkg\n\nfunc Util() {}\n")
	writeFile(t, root, ".git/config", "[core]\n\trepositoryformatversion = 0\n")
	writeFile(t, root, ".github/workflows/ci.yml", "name: ci\non: push\n")
	writeFile(t, root, "src/nested/handler.js", "console.log('nested source file');")

	content, err := FilterRepo(root)
	require.NoError(t, err)

	paths := sourcePaths(content)
	assert.ElementsMatch(t, []string{"app.js", filepath.Join("src", "nested", "handler.js")}, paths)
}

func TestFilterRepo_SkipsHiddenAndIgnoredFiles(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, ".gitignore", "node_modules/\n*.log\n")
	writeFile(t, root, ".env", "SECRET_TOKEN=do-not-read-me\n")
	writeFile(t, root, ".hidden.py", "print('hidden files are skipped')")
	writeFile(t, root, "visible.py", "print('visible files are kept')")

	content, err := FilterRepo(root)
	require.NoError(t, err)

	assert.Empty(t, content.Important)
	require.Len(t, content.Source, 1)
	assert.Equal(t, "visible.py", content.Source[0].Path)
}

func TestFilterRepo_BinarySniff(t *testing.T) {
	root := t.TempDir()

	// Unknown extension with a NUL byte in the first KiB.
	binary := append([]byte("binary header "), 0x00, 0x01, 0x02)
	binary = append(binary, []byte(strings.Repeat("x", 64))...)
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.xyz"), binary, 0644))

	// Unknown extension, but plain text.
	writeFile(t, root, "notes.xyz", "plain text in an unknown extension, long enough to keep")

	content, err := FilterRepo(root)
	require.NoError(t, err)

	// Neither lands in Source (unknown ext is not a code ext), but only the
	// text one survived the sniff; the point is the walk does not error.
	assert.Empty(t, content.Source)
	assert.Empty(t, content.Important)
}

func TestFilterRepo_SourceFileCap(t *testing.T) {
	root := t.TempDir()

	for i := 0; i < 200; i++ {
		writeFile(t, root, fmt.Sprintf("mod_%03d.py", i), "def handler():\n    return 'response'\n")
	}

	content, err := FilterRepo(root)
	require.NoError(t, err)

	assert.Len(t, content.Source, MaxSourceFiles)
}

func TestFilterRepo_ImportantNotCountedAgainstCap(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "README.md", "# Capped repo readme, still extracted.")
	writeFile(t, root, "package.json", `{"name": "capped", "version": "1.0.0"}`)
	for i := 0; i < MaxSourceFiles+10; i++ {
		writeFile(t, root, fmt.Sprintf("f_%03d.js", i), "console.log('filler source file');")
	}

	content, err := FilterRepo(root)
	require.NoError(t, err)

	assert.Len(t, content.Source, MaxSourceFiles)
	assert.Len(t, content.Important, 2)
}

func TestFilterRepo_InvalidUTF8IsReplaced(t *testing.T) {
	root := t.TempDir()

	data := append([]byte("valid prefix "), 0xff, 0xfe)
	data = append(data, []byte(" valid suffix")...)
	require.NoError(t, os.WriteFile(filepath.Join(root, "weird.py"), data, 0644))

	content, err := FilterRepo(root)
	require.NoError(t, err)

	require.Len(t, content.Source, 1)
	assert.True(t, strings.Contains(content.Source[0].Content, "valid prefix"))
	assert.True(t, strings.Contains(content.Source[0].Content, "�"))
}

func TestFilterRepo_MissingRoot(t *testing.T) {
	_, err := FilterRepo(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
