// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const (
	// archiveDirPrefix is the top-level directory every PMC package unpacks to.
	archiveDirPrefix = "PMC"
	documentExt      = ".nxml"
)

var (
	// ErrNoDocument is returned when the working directory holds no article.
	ErrNoDocument = errors.New("no .nxml document in working directory")

	// ErrMultipleDocuments is returned when more than one article is present,
	// which means the working directory was not clean.
	ErrMultipleDocuments = errors.New("more than one .nxml document in working directory")

	// ErrUnsafePath is returned for archive entries that would land outside
	// the destination directory.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

// Unpack streams a gzip-compressed tar archive from r into dest and returns
// the number of regular files written. Symlinks and other special entries
// are skipped.
func Unpack(r io.Reader, dest string) (int, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", dest, err)
	}

	tr := tar.NewReader(zr)
	files := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return files, fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		if err != nil {
			return files, fmt.Errorf("reading archive: %w", err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return files, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("creating %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr); err != nil {
				return files, err
			}
			files++
		}
	}
	return files, nil
}

func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		return fmt.Errorf("writing %s: %w", path, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", path, closeErr)
	}
	return nil
}

// safeJoin joins an archive entry name onto dest, rejecting absolute names
// and names that climb out of dest.
func safeJoin(dest, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(dest, name)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// FindDocument returns the single article document unpacked into workDir.
func FindDocument(workDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(workDir, archiveDirPrefix+"*", "*"+documentExt))
	if err != nil {
		return "", fmt.Errorf("searching %s: %w", workDir, err)
	}
	switch len(matches) {
	case 0:
		return "", ErrNoDocument
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrMultipleDocuments, strings.Join(matches, ", "))
	}
}

// ArchiveDirs lists the unpacked package directories in workDir.
func ArchiveDirs(workDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(workDir, archiveDirPrefix+"*"))
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", workDir, err)
	}
	var dirs []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			dirs = append(dirs, m)
		}
	}
	return dirs, nil
}

// Cleanup removes every unpacked package directory from workDir.
func Cleanup(workDir string) error {
	dirs, err := ArchiveDirs(workDir)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	}
	return nil
}
