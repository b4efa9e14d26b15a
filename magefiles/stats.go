//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
)

// pkgLines counts Go lines in one package directory.
type pkgLines struct {
	prod, test int
}

// Stats prints Go lines of code per package and the word count of README.md
// and docs/.
func Stats() error {
	perPkg := map[string]*pkgLines{}

	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch path {
			case "vendor", ".git", "_examples", "magefiles", binaryDir:
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		count, countErr := countLines(path)
		if countErr != nil {
			return nil
		}
		pkg := filepath.ToSlash(filepath.Dir(path))
		if perPkg[pkg] == nil {
			perPkg[pkg] = &pkgLines{}
		}
		if strings.HasSuffix(path, "_test.go") {
			perPkg[pkg].test += count
		} else {
			perPkg[pkg].prod += count
		}
		return nil
	})
	if err != nil {
		return err
	}

	docFiles, err := filepath.Glob("docs/*.md")
	if err != nil {
		return err
	}
	if _, err := os.Stat("README.md"); err == nil {
		docFiles = append(docFiles, "README.md")
	}
	docWords := 0
	for _, path := range docFiles {
		words, wordErr := countWords(path)
		if wordErr != nil {
			return wordErr
		}
		docWords += words
	}

	pkgs := make([]string, 0, len(perPkg))
	for pkg := range perPkg {
		pkgs = append(pkgs, pkg)
	}
	slices.Sort(pkgs)

	var total pkgLines
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "package\tprod\ttest\t")
	for _, pkg := range pkgs {
		n := perPkg[pkg]
		total.prod += n.prod
		total.test += n.test
		fmt.Fprintf(tw, "%s\t%d\t%d\t\n", pkg, n.prod, n.test)
	}
	fmt.Fprintf(tw, "total\t%d\t%d\t\n", total.prod, total.test)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nDocumentation: %d words in %d files\n", docWords, len(docFiles))
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

func countWords(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
