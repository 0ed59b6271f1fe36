package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// SubsetFile represents an image subset list.
type SubsetFile struct {
	// Name is the file name without its extension.
	Name string
	// Path is the path to the subset file.
	Path string
}

// SubsetExtensions are the file extensions recognised as subset lists.
var SubsetExtensions = []string{".csv", ".txt"}

// FindSubsetFiles lists the subset files of a directory.
//
// Arguments:
// - dir: Directory path containing subset files.
//
// Returns:
// - []SubsetFile: Subset files sorted by name.
// - error: Error if the directory cannot be read or holds no subset file.
func FindSubsetFiles(dir string) ([]SubsetFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading subset directory")
	}

	var subsets []SubsetFile
	for _, file := range files {
		if file.IsDir() || strings.HasPrefix(file.Name(), ".") {
			continue
		}

		ext := strings.ToLower(filepath.Ext(file.Name()))
		for _, want := range SubsetExtensions {
			if ext == want {
				subsets = append(subsets, SubsetFile{
					Name: strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())),
					Path: filepath.Join(dir, file.Name()),
				})
				break
			}
		}
	}

	if len(subsets) == 0 {
		return nil, errors.Errorf("no subset files in %s", dir)
	}

	sort.Slice(subsets, func(i, j int) bool {
		return subsets[i].Name < subsets[j].Name
	})

	return subsets, nil
}
