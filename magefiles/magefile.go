//go:build mage

// Package main provides build targets for the MLD plugin SDK using Mage.
//
// Usage:
//
//	mage build    Compile the mldstore binary to bin/
//	mage test     Run all tests with the race detector
//	mage cover    Run all tests and write coverage.out
//	mage lint     Run golangci-lint
//	mage clean    Remove build artifacts
//	mage install  Install mldstore to GOPATH/bin
//	mage stats    Print Go line counts per package
package main

import (
	"bufio"
	"cmp"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo        = "go"
	binaryName   = "mldstore"
	binaryDir    = "bin"
	cmdDir       = "./cmd/mldstore"
	coverProfile = "coverage.out"
	versionPkg   = "github.com/mld-platform/mld-sdk/pkg/sdk"
)

// Build compiles the mldstore binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs every package's tests with the race detector.
func Test() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Cover runs the tests and writes a coverage profile.
func Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverProfile)
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if err := sh.RunV(binGo, "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	if err := os.Remove(coverProfile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Version prints the SDK version compiled into the module.
func Version() error {
	out, err := sh.Output(binGo, "list", "-f", "{{.Dir}}", versionPkg)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(out, "version.go"))
	if err != nil {
		return err
	}
	for line := range strings.Lines(string(data)) {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "const Version = "); ok {
			fmt.Println(strings.Trim(v, `"`))
			return nil
		}
	}
	return fmt.Errorf("no Version constant in %s", versionPkg)
}

type pkgStats struct {
	dir       string
	prodLines int
	testLines int
}

// Stats prints Go lines of code per package, production and tests apart.
func Stats() error {
	byDir := map[string]*pkgStats{}
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case "vendor", ".git", binaryDir, "magefiles":
				return filepath.SkipDir
			}
			if strings.HasPrefix(d.Name(), "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return nil
		}
		dir := filepath.Dir(path)
		st, ok := byDir[dir]
		if !ok {
			st = &pkgStats{dir: dir}
			byDir[dir] = st
		}
		if strings.HasSuffix(path, "_test.go") {
			st.testLines += n
		} else {
			st.prodLines += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	all := make([]*pkgStats, 0, len(byDir))
	for _, st := range byDir {
		all = append(all, st)
	}
	slices.SortFunc(all, func(a, b *pkgStats) int { return cmp.Compare(a.dir, b.dir) })

	var prod, test int
	fmt.Printf("%-24s %8s %8s\n", "package", "prod", "test")
	for _, st := range all {
		fmt.Printf("%-24s %8d %8d\n", st.dir, st.prodLines, st.testLines)
		prod += st.prodLines
		test += st.testLines
	}
	fmt.Printf("%-24s %8d %8d\n", "total", prod, test)
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
