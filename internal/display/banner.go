package display

import (
	"fmt"
	"io"

	"github.com/backmassage/npy2mat/internal/term"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprint(w, `                 ____                  _
 _ __  _ __  _  |___ \ _ __ ___   __ _| |_
| '_ \| '_ \| | | |__) | '_ `+"`"+` _ \ / _`+"`"+` | __|
| | | | |_) | |_| / __/| | | | | | (_| | |_
|_| |_| .__/ \__, |_____|_| |_| |_|\__,_|\__|
      |_|    |___/
`)
	fmt.Fprint(w, term.NC)
	if term.Enabled() {
		fmt.Fprintln(w)
	}
}
