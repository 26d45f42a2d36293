// Package measure prints how long interactive steps take.
package measure

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Interactively prints status to w and returns a function which, once
// called, overwrites the status line with the elapsed time followed by
// fragment.
func Interactively(w io.Writer, status string) (done func(fragment string)) {
	status = "[" + status + "]"
	fmt.Fprint(w, status)
	start := time.Now()
	return func(fragment string) {
		elapsed := time.Since(start)
		fmt.Fprintf(w, "\r[done] in %.2fs%s"+strings.Repeat(" ", len(status))+"\n",
			elapsed.Seconds(),
			fragment)
	}
}
