package coa

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ArchiveName is the file name of a batch archive.
const ArchiveName = "All_COAs.zip"

// WriteArchive writes a zip of the given files to w. Each file is stored
// under its base name; repeated names are added once.
func WriteArchive(w io.Writer, paths []string) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[filepath.Base(p)] {
			continue
		}
		seen[filepath.Base(p)] = true
		if err := addFile(zw, p); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(path)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add %s: %w", hdr.Name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy %s: %w", hdr.Name, err)
	}
	return nil
}

// SaveArchive writes the archive to dir/ArchiveName and returns its path.
func SaveArchive(dir string, paths []string) (string, error) {
	out := filepath.Join(dir, ArchiveName)
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	if err := WriteArchive(f, paths); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	return out, nil
}
