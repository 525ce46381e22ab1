package cli

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// startSpinner shows progress on stderr while a pipeline call is running.
// It stays silent when stderr is not a terminal.
func startSpinner(suffix string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriterFile(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}
