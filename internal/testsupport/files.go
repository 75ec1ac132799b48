package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteImages creates each named file in dir. The content is the file name,
// so every copy can be traced back to its source.
func WriteImages(t testing.TB, dir string, names ...string) {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// ImageName builds a filename following the dataset convention
// site_cam_<plot>_<seq>_<hour>_RGB1.png, with the hour at field index 4.
func ImageName(plot string, seq, hour int) string {
	return fmt.Sprintf("site_cam_%s_%03d_%02d_RGB1.png", plot, seq, hour)
}

// ImageNames returns count names for one plot with sequence numbers starting
// at 1, all at the given hour.
func ImageNames(plot string, count, hour int) []string {
	names := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		names = append(names, ImageName(plot, i, hour))
	}
	return names
}

// MkdirAll creates each directory, failing the test on error.
func MkdirAll(t testing.TB, paths ...string) {
	t.Helper()

	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", p, err)
		}
	}
}

// WriteSegment creates <root>/<rel>/segmented_images holding names and
// returns the folder path.
func WriteSegment(t testing.TB, root, rel string, names ...string) string {
	t.Helper()

	dir := filepath.Join(root, rel, "segmented_images")
	WriteImages(t, dir, names...)
	return dir
}
