package file

import (
	"path/filepath"
	"strings"
)

func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	if lastDot <= 0 {
		return filepath.Join(dir, filename+ext)
	}

	return filepath.Join(dir, filename[:lastDot]+ext)
}

// OutputPath names a translated copy of inputPath as <base>.<lang>.<ext>.
// An empty outputDir keeps the file next to its input.
func OutputPath(inputPath, outputDir, lang string) string {
	if outputDir == "" {
		outputDir = filepath.Dir(inputPath)
	}
	ext := filepath.Ext(inputPath)
	name := ReplaceExt(filepath.Base(inputPath), "."+lang+ext)
	return filepath.Join(outputDir, filepath.Base(name))
}
