package display

import (
	"fmt"
	"os"
)

// PrintBanner writes the startup banner to stdout. Suppressed when stdout
// is not a terminal so piped output stays machine-readable.
func PrintBanner() {
	fi, err := os.Stdout.Stat()
	if err != nil || (fi.Mode()&os.ModeCharDevice) == 0 {
		return
	}
	fmt.Println(`        _     _                      _
 __   _(_) __| | ___  ___   ___ _   _| |_
 \ \ / / |/ _` + "`" + ` |/ _ \/ _ \ / __| | | | __|
  \ V /| | (_| |  __/ (_) | (__| |_| | |_
   \_/ |_|\__,_|\___|\___/ \___|\__,_|\__|`)
	fmt.Println()
}
