//go:build !linux

package convert

import (
	"os"
	"time"
)

func fileTimes(_ string, st os.FileInfo) (atime, mtime time.Time) {
	return st.ModTime(), st.ModTime()
}
