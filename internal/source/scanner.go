package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDir lists the batch files directly inside dir, sorted by name.
// Office lock files, hidden files and previously written results files are
// skipped. A missing directory yields no files and no error.
func ScanDir(dir string) ([]DiscoveredFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []DiscoveredFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			continue
		}
		format, err := DetectFormat(name)
		if err != nil {
			continue
		}
		if strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), resultsSuffix) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue //nolint:nilerr // file vanished between ReadDir and Info
		}
		files = append(files, DiscoveredFile{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Format:  format,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
