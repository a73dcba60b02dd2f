package profile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// panelRanges splits [0, n) into count contiguous, near-equal spans.
func panelRanges(n, count int) [][2]int {
	if count < 1 {
		count = 1
	}
	spans := make([][2]int, 0, count)
	base := n / count
	rem := n % count
	beg := 0
	for p := 0; p < count; p++ {
		size := base
		if p < rem {
			size++
		}
		spans = append(spans, [2]int{beg, beg + size})
		beg += size
	}
	return spans
}

// WritePanels implements S10 (spec.md §4.10): splits links (already
// ordered by run-id via SortLinks) into nThreads contiguous writer
// ranges, each further split into nPanels panels, and streams every
// link's run-id followed by its referenced profile fragment into
// "<dir>/<root>.<partition>.P<thread>.<panel>". Each thread range is
// written by its own goroutine; links and buf are read-only at this
// point so the writers share them freely.
func WritePanels(dir, root string, partition int, links Links, buf *Buffer, nThreads, nPanels int) error {
	layout := links.Layout
	n := links.Len()

	threadSpans := panelRanges(n, nThreads)
	errs := make([]error, len(threadSpans))
	var wg sync.WaitGroup
	for t, tr := range threadSpans {
		wg.Add(1)
		go func(t int, tr [2]int) {
			defer wg.Done()
			for panel, pr := range panelRanges(tr[1]-tr[0], nPanels) {
				beg, end := tr[0]+pr[0], tr[0]+pr[1]
				name := fmt.Sprintf("%s.%d.P%d.%d", root, partition, t, panel)
				path := filepath.Join(dir, name)
				if err := writePanel(path, links, buf, beg, end, layout.RunBytes); err != nil {
					errs[t] = errors.Wrapf(err, "writing profile panel %s", path)
					return
				}
			}
		}(t, tr)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func writePanel(path string, links Links, buf *Buffer, beg, end, runBytes int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 64*1024)
	runID := make([]byte, runBytes)
	for i := beg; i < end; i++ {
		profileIdx, joined := links.Header(i)
		copy(runID, links.RunID(i))
		// The flag rides the top bit of the id's most significant byte,
		// which real ordinals never reach.
		if joined {
			runID[runBytes-1] |= 0x80
		} else {
			runID[runBytes-1] &^= 0x80
		}
		if _, err := w.Write(runID); err != nil {
			return errors.Wrap(err, "writing run-id")
		}
		if _, err := w.Write(buf.At(profileIdx)); err != nil {
			return errors.Wrap(err, "writing profile fragment")
		}
	}
	return errors.Wrap(w.Flush(), "flushing profile panel")
}
