package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// confirmInput is where confirm reads the answer from. Tests swap it out.
var confirmInput io.Reader = os.Stdin

// confirm prints a [y/N] prompt and reads one line. Only "y" or "yes"
// count as approval; everything else, including EOF, declines.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)

	line, err := bufio.NewReader(confirmInput).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
