package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// CopyResult describes a completed copy.
type CopyResult struct {
	Size   int64
	SHA256 string // hex digest of the copied bytes
}


// CopyFilePreserve copies src to dst and then applies the source permission
// bits and access/modification times, mirroring a "copy with metadata". When
// verify is set, source and destination streams are hashed and compared and
// dst is removed on mismatch.
func CopyFilePreserve(src, dst string, verify bool) (CopyResult, error) {
	info, err := os.Stat(src)
	if err != nil {
		return CopyResult{}, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return CopyResult{}, fmt.Errorf("copy %s: not a regular file", src)
	}
	// Captured before reading so the copy itself does not move it.
	atime := accessTime(src, info)

	result, err := copyContent(src, dst, info.Mode().Perm(), verify)
	if err != nil {
		return CopyResult{}, err
	}
	if verify && result.Size != info.Size() {
		_ = os.Remove(dst)
		return CopyResult{}, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), result.Size)
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return CopyResult{}, fmt.Errorf("preserve mode: %w", err)
	}
	if err := os.Chtimes(dst, atime, info.ModTime()); err != nil {
		return CopyResult{}, fmt.Errorf("preserve times: %w", err)
	}
	return result, nil
}

// copyContent always hashes the written stream; verify adds a second hash over
// the source side of the tee so corruption in either direction is caught.
func copyContent(src, dst string, mode os.FileMode, verify bool) (CopyResult, error) {
	in, err := os.Open(src)
	if err != nil {
		return CopyResult{}, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return CopyResult{}, err
	}
	defer func() {
		_ = out.Close()
	}()

	dstHasher := sha256.New()
	var reader io.Reader = in
	var srcHasher hash.Hash
	if verify {
		srcHasher = sha256.New()
		reader = io.TeeReader(in, srcHasher)
	}

	written, err := io.Copy(io.MultiWriter(out, dstHasher), reader)
	if err != nil {
		return CopyResult{}, err
	}
	if err := out.Close(); err != nil {
		return CopyResult{}, err
	}

	sum := dstHasher.Sum(nil)
	if verify && !bytes.Equal(srcHasher.Sum(nil), sum) {
		_ = os.Remove(dst)
		return CopyResult{}, errors.New("copy hash mismatch: file corrupted during copy")
	}
	return CopyResult{Size: written, SHA256: hex.EncodeToString(sum)}, nil
}

// ResetDir removes path and everything beneath it, then recreates it
// (including missing parents). It refuses paths that resolve to the
// filesystem root or the working directory.
func ResetDir(path string) error {
	if path == "" {
		return errors.New("reset dir: empty path")
	}
	cleaned := filepath.Clean(path)
	if cleaned == "." || cleaned == filepath.Dir(cleaned) {
		return fmt.Errorf("reset dir: refusing to remove %q", path)
	}
	if err := os.RemoveAll(cleaned); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reset dir: remove %s: %w", cleaned, err)
	}
	if err := os.MkdirAll(cleaned, 0o755); err != nil {
		return fmt.Errorf("reset dir: create %s: %w", cleaned, err)
	}
	return nil
}
