package bitio

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// CheckScratchSpace performs a pre-flight statfs on dir and returns an
// error if the available space is below minBytes. This turns an
// avoidable mid-run ENOSPC (spec.md §7's "Allocation failure ... fatal")
// into an upfront, diagnosable failure before any per-partition array is
// allocated, mirroring cmd/muscato/main.go's own use of unix.Statfs to
// validate its scratch directory before starting work.
func CheckScratchSpace(dir string, minBytes uint64) error {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return errors.Wrapf(err, "statfs %s", dir)
	}
	avail := st.Bavail * uint64(st.Bsize)
	if avail < minBytes {
		return errors.Errorf("scratch directory %s has %d bytes free, need at least %d", dir, avail, minBytes)
	}
	return nil
}
