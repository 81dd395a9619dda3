package display

import (
	"errors"
	"os"
	"sort"

	"github.com/harrison/flatten/internal/extension"
	"github.com/harrison/flatten/internal/fsys"
)

// FindPendingFiles lists the regular files directly inside dir whose name
// still ends with from, sorted by name. A missing dir yields no files and no
// error.
func FindPendingFiles(fs fsys.Filesystem, dir string, from extension.Spec, foldCase bool) ([]string, error) {
	infos, err := fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	pending := make([]string, 0)
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		if from.Matches(info.Name(), foldCase) {
			pending = append(pending, info.Name())
		}
	}
	sort.Strings(pending)
	return pending, nil
}
