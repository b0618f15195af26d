// Package prompt asks interactive yes/no questions.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm writes question to w and reads one line from r. Only "y" or "Y"
// confirms; anything else, including EOF, declines.
func Confirm(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprint(w, question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
