// Package fileutil provides the recursive scanner that feeds the flatten pipeline.
//
// The scanner walks a root directory through an fsys.Filesystem and yields
// every file whose name ends with a configured extension. It is lazy: entries
// are produced one at a time through an iter.Seq2 so the copier can start
// working before the walk is finished, and the walk stops as soon as the
// consumer stops ranging.
//
// # Exclusions
//
// Subtrees are pruned in this order:
//   - ExcludePaths: absolute paths (the flatten output directory). This rule is
//     what keeps a second run from re-reading the files the first run produced.
//   - ExcludeDirs: directory names such as ".git" or "node_modules".
//   - SkipHidden: directory names starting with ".".
//   - Exclude: gobwas/glob patterns matched against the root-relative path with
//     "/" as separator ("vendor/**", "**/testdata").
//   - MaxDepth: 0 = unlimited, 1 = root directory only.
//
// # Ordering
//
// Directory entries are visited in lexical order, depth first, so two scans
// of the same filesystem snapshot always yield the same sequence.
//
// # Errors
//
// A missing or non-directory root is fatal and reported by NewScanner
// (ErrRootNotFound, ErrNotDirectory). Anything that goes wrong below the root
// is yielded as a non-fatal error and the walk continues with the next entry.
//
// Usage:
//
//	scanner, err := fileutil.NewScanner(fs, root, fileutil.ScanOptions{
//	    Extension:    extension.Normalize("go"),
//	    ExcludePaths: []string{outputDir},
//	    ExcludeDirs:  []string{".git", "vendor"},
//	})
//	if err != nil {
//	    return err
//	}
//	for entry, err := range scanner.Entries() {
//	    if err != nil {
//	        log.Printf("scan: %v", err)
//	        continue
//	    }
//	    fmt.Println(entry.Path)
//	}
package fileutil
