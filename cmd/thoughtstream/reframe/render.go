package reframecmder

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/papercomputeco/thoughtstream/pkg/cliui"
	"github.com/papercomputeco/thoughtstream/pkg/reducer"
)

// renderer draws reconciled records as they are published. On a terminal
// it redraws a styled block in place; otherwise it prints one line per field
// change. Publish may be called from the reducer's timer goroutine.
type renderer struct {
	mu  sync.Mutex
	out io.Writer
	tty bool

	// lines is the height of the last styled block, for in-place redraws.
	lines int
	seen  map[string]string
}

func newRenderer(out io.Writer, tty bool) *renderer {
	return &renderer{out: out, tty: tty, seen: map[string]string{}}
}

func (r *renderer) Publish(rec reducer.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tty {
		r.redraw(cliui.RenderRecord(rec))
		return
	}
	r.printChanges(rec)
}

// Finish renders the terminal record once the stream is over.
func (r *renderer) Finish(rec reducer.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tty {
		md, err := cliui.RenderMarkdown(cliui.RecordMarkdown(rec))
		if err != nil {
			md = cliui.RenderRecord(rec)
		}
		r.redraw(md)
		r.lines = 0
		return
	}

	r.printChanges(rec)
	fmt.Fprintf(r.out, "status: %s\n", rec.Status)
	if rec.Error != "" {
		fmt.Fprintf(r.out, "error: %s\n", rec.Error)
	}
}

func (r *renderer) redraw(block string) {
	if r.lines > 0 {
		// Move the cursor up over the previous block and clear to the end.
		fmt.Fprintf(r.out, "\x1b[%dA\x1b[J", r.lines)
	}
	if !strings.HasSuffix(block, "\n") {
		block += "\n"
	}
	fmt.Fprint(r.out, block)
	r.lines = strings.Count(block, "\n")
}

func (r *renderer) printChanges(rec reducer.Record) {
	for _, k := range cliui.OrderedFields(rec) {
		v := cliui.FormatValue(rec.Fields[k])
		if prev, ok := r.seen[k]; ok && prev == v {
			continue
		}
		r.seen[k] = v
		fmt.Fprintf(r.out, "%s: %s\n", k, v)
	}
}
