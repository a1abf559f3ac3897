package fulfillment

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
)

// ArchiveDirectory compresses the tree rooted at srcDir into a zip archive
// at destPath and returns the archive's byte size. Deliverables are
// downloaded once per customer, so compression favors size over CPU.
//
// The archive is assembled under a temporary name and renamed into place on
// success; a failed run never leaves a partial archive at destPath. An
// empty source directory is valid and produces an empty archive.
func ArchiveDirectory(srcDir, destPath string) (int64, error) {
	if _, err := os.Stat(srcDir); err != nil {
		return 0, fmt.Errorf("failed to stat source directory: %w", err)
	}

	partialPath := destPath + ".partial"
	out, err := os.Create(partialPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}

	if err := writeArchive(out, srcDir); err != nil {
		out.Close()
		os.Remove(partialPath)
		return 0, err
	}

	if err := out.Close(); err != nil {
		os.Remove(partialPath)
		return 0, fmt.Errorf("failed to close archive: %w", err)
	}

	if err := os.Rename(partialPath, destPath); err != nil {
		os.Remove(partialPath)
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat archive: %w", err)
	}

	return info.Size(), nil
}

func writeArchive(out io.Writer, srcDir string) error {
	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", rel, err)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", rel, err)
		}

		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to compress %s: %w", rel, err)
		}

		return nil
	})
	if err != nil {
		zw.Close()
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close archive writer: %w", err)
	}

	return nil
}
