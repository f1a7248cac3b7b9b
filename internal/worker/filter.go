package worker

import (
	"bytes"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Size and count bounds for extracted content. They keep one pathological
// repository (huge generated file, vendored tree) from stalling the
// pipeline or blowing up the AI payload.
const (
	MinFileSizeBytes = 10
	MaxFileSizeBytes = 1 * 1024 * 1024
	MaxSourceFiles   = 150

	binarySniffBytes = 1024
)

var textExtensions = map[string]bool{
	".md": true, ".txt": true, ".rst": true, ".log": true, ".cfg": true,
	".ini": true, ".toml": true, ".yaml": true, ".yml": true, ".json": true,
	".xml": true, ".html": true, ".css": true, ".js": true, ".py": true,
	".java": true, ".c": true, ".cpp": true, ".h": true, ".hpp": true,
	".cs": true, ".go": true, ".php": true, ".rb": true, ".swift": true,
	".kt": true, ".scala": true, ".sh": true, ".ps1": true, ".bat": true,
	".sql": true, ".ts": true,
}

var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".html": true, ".css": true, ".scss": true, ".php": true, ".rb": true,
	".erb": true, ".java": true, ".scala": true, ".kt": true, ".cpp": true,
	".c": true, ".h": true, ".hpp": true, ".cs": true, ".go": true,
	".rs": true, ".swift": true, ".sh": true, ".bash": true, ".ps1": true,
	".pl": true, ".lua": true, ".r": true, ".dart": true, ".sql": true,
	".m": true, ".mm": true, ".ino": true, ".vb": true, ".fs": true,
	".groovy": true, ".perl": true, ".pas": true,
}

var ignoreDirs = map[string]bool{
	".git": true, ".vscode": true, ".idea": true, "node_modules": true,
	"__pycache__": true, "build": true, "dist": true, "target": true,
	"vendor": true, ".pytest_cache": true, "venv": true, "env": true,
	"docs": true, "examples": true, "tests": true, "test": true,
	"samples": true,
}

var ignoreFiles = map[string]bool{
	".gitignore": true, ".gitattributes": true, ".env": true,
	".DS_Store": true, ".project": true, ".classpath": true,
	".settings": true,
}

var ignoreExtensions = map[string]bool{
	".lock": true, ".svg": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".ico": true, ".map": true, ".woff": true, ".woff2": true,
	".ttf": true, ".eot": true, ".pdf": true, ".doc": true, ".docx": true,
	".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true, ".zip": true,
	".gz": true, ".rar": true, ".exe": true, ".dll": true, ".so": true,
	".o": true, ".class": true, ".jar": true, ".pyc": true, ".webm": true,
	".mp4": true, ".mp3": true, ".wav": true, ".obj": true, ".bin": true,
	".dat": true, ".iso": true, ".img": true,
}

// importantFiles maps canonical documentation/manifest names to a
// category. Matched case-insensitively by file name.
var importantFiles = map[string][]string{
	"readme":       {"README.md", "README.rst", "README.txt", "README", "readme.md"},
	"contributing": {"CONTRIBUTING.md", "CONTRIBUTING.rst"},
	"license":      {"LICENSE", "LICENSE.md", "COPYING", "license.txt"},
	"setup": {
		"setup.py", "requirements.txt", "Pipfile", "pyproject.toml", "environment.yml",
		"package.json", "yarn.lock", "pnpm-lock.yaml", "webpack.config.js", "babel.config.js",
		"Gemfile", "Gemfile.lock", "composer.json", "pom.xml", "build.gradle", "settings.gradle",
		"go.mod", "go.sum", "Cargo.toml", "Cargo.lock", "Makefile", "CMakeLists.txt",
		"Dockerfile", "docker-compose.yml", "Jenkinsfile", ".travis.yml", ".gitlab-ci.yml",
	},
	"configuration": {".env.example", "config.example.json", "settings.py", "appsettings.json", "web.config"},
	"architecture":  {"ARCHITECTURE.md", "DESIGN.md"},
}

var importantNameToCategory = func() map[string]string {
	m := make(map[string]string)
	for category, names := range importantFiles {
		for _, name := range names {
			m[strings.ToLower(name)] = category
		}
	}
	return m
}()

type ImportantFile struct {
	Path     string
	Category string
	Content  string
}

type SourceFile struct {
	Path    string
	Content string
}

// ExtractedContent is the transient filter output: important files and
// source files, each in walk-discovery order. Consumed in memory by the
// AI stage, never persisted.
type ExtractedContent struct {
	Important []ImportantFile
	Source    []SourceFile
}

// FilterRepo walks the tree once, top-down, pruning ignored and hidden
// directories before descending, and classifies the remaining files as
// important or source. Output is deterministic for a fixed tree except
// for walk-order ties at the source cap boundary, which is an accepted
// property of the cap, not a defect.
func FilterRepo(root string) (*ExtractedContent, error) {
	content := &ExtractedContent{}
	seenImportant := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("Filter: skipping unreadable entry %s: %v", path, err)
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			// Prune before descending so ignored trees cost no I/O.
			if ignoreDirs[strings.ToLower(name)] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		lowerName := strings.ToLower(name)
		if ignoreFiles[lowerName] || strings.HasPrefix(name, ".") {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		if ignoreExtensions[ext] {
			return nil
		}

		if !textExtensions[ext] && !codeExtensions[ext] && isLikelyBinary(path) {
			return nil
		}

		fileContent, ok := readFileContent(path)
		if !ok {
			return nil
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			relPath = path
		}

		if category, ok := importantNameToCategory[lowerName]; ok {
			// First match per path wins.
			if !seenImportant[relPath] {
				seenImportant[relPath] = true
				content.Important = append(content.Important, ImportantFile{
					Path:     relPath,
					Category: category,
					Content:  fileContent,
				})
			}
			return nil
		}

		if codeExtensions[ext] && len(content.Source) < MaxSourceFiles {
			content.Source = append(content.Source, SourceFile{
				Path:    relPath,
				Content: fileContent,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return content, nil
}

// readFileContent reads a file with permissive text decoding. Files
// outside the size bounds are skipped: too small to be informative, too
// large to be representative.
func readFileContent(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if info.Size() < MinFileSizeBytes || info.Size() > MaxFileSizeBytes {
		return "", false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Filter: failed to read %s: %v", path, err)
		return "", false
	}

	return strings.ToValidUTF8(string(data), "�"), true
}

// isLikelyBinary sniffs the first KiB for a NUL byte.
func isLikelyBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, binarySniffBytes)
	n, err := f.Read(buf)
	if n <= 0 && err != nil {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}
