package display

import (
	"fmt"
	"io"

	"github.com/backmassage/mediaopt/internal/term"
)

// PrintBanner writes the ASCII art banner to w, in magenta when colors are enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprint(w, `                    _ _                   _
 _ __ ___   ___  __| (_) __ _  ___  _ __ | |_
| '_ `+"`"+` _ \ / _ \/ _`+"`"+` | |/ _`+"`"+` |/ _ \| '_ \| __|
| | | | | |  __/ (_| | | (_| | (_) | |_) | |_
|_| |_| |_|\___|\__,_|_|\__,_|\___/| .__/ \__|
                                   |_|
`)
	fmt.Fprint(w, term.NC)
}
