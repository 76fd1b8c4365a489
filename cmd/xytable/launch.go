package main

import (
	"bufio"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// promptLaunch asks whether to start the controller GUI.
func promptLaunch(in *bufio.Reader, out io.Writer) bool {
	io.WriteString(out, "Launch Mach4? [Y/N]: ")
	line, _ := in.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

// launch starts each command without waiting for it to exit. Failures are
// recorded and otherwise ignored.
func launch(cmds []string, errs zerolog.Logger) int {
	var n int
	for _, c := range cmds {
		args := strings.Fields(c)
		if len(args) == 0 {
			continue
		}
		cmd := exec.Command(args[0], args[1:]...)
		err := cmd.Start()
		if err != nil {
			errs.Error().Str("kind", "launch").Str("input", c).Err(err).Send()
			continue
		}
		go cmd.Wait()
		n++
	}
	return n
}
