package convert

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func fileTimes(path string, st os.FileInfo) (atime, mtime time.Time) {
	var s unix.Stat_t
	if err := unix.Stat(path, &s); err != nil {
		return st.ModTime(), st.ModTime()
	}
	return time.Unix(s.Atim.Unix()), time.Unix(s.Mtim.Unix())
}
