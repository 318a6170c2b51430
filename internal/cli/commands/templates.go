package commands

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

//go:embed scaffold
var scaffoldFS embed.FS

const scaffoldRoot = "scaffold"

// copyScaffold copies the embedded project files into targetDir and returns
// the names written. Existing files are kept unless force is set.
func copyScaffold(targetDir string, force bool) ([]string, error) {
	var written []string
	err := fs.WalkDir(scaffoldFS, scaffoldRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name := renameSpecialFiles(path.Base(p))
		ok, err := writeProjectFile(filepath.Join(targetDir, name), force, func() ([]byte, error) {
			return scaffoldFS.ReadFile(p)
		})
		if err != nil {
			return err
		}
		if ok {
			written = append(written, name)
		}
		return nil
	})
	return written, err
}

// writeProjectFile writes the content returned by read to target, skipping
// an existing file unless force is set. It reports whether it wrote.
func writeProjectFile(target string, force bool, read func() ([]byte, error)) (bool, error) {
	if !force {
		if _, err := os.Stat(target); err == nil {
			return false, nil
		}
	}
	content, err := read()
	if err != nil {
		return false, err
	}
	return true, os.WriteFile(target, content, 0o600)
}

// renameSpecialFiles handles files that need renaming (e.g., dotfiles).
func renameSpecialFiles(name string) string {
	switch name {
	case "gitignore":
		return ".gitignore"
	default:
		return name
	}
}
