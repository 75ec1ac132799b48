package fileutil

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// accessTime reads the last access time, falling back to the modification time.
func accessTime(path string, info os.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return info.ModTime()
	}
	return time.Unix(st.Atimespec.Unix())
}
