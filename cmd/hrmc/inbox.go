package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"github.com/kyberias/HRMC/pkg/cpu"
)

const inboxPrompt = "inbox> "

// terminalInbox prompts for each INBOX value. An empty line or end of input
// empties the inbox. On a terminal it uses a line editor with history;
// otherwise it reads lines from stdin.
func terminalInbox(stdin io.Reader, stdout io.Writer) (cpu.Inbox, func()) {
	if f, ok := stdin.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		ln := liner.NewLiner()
		ln.SetCtrlCAborts(true)
		var once sync.Once
		closeFn := func() { once.Do(func() { ln.Close() }) }
		return promptInbox(func() (string, error) { return ln.Prompt(inboxPrompt) }, ln.AppendHistory, stdout), closeFn
	}

	sc := bufio.NewScanner(stdin)
	readLine := func() (string, error) {
		fmt.Fprint(stdout, inboxPrompt)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return sc.Text(), nil
	}
	return promptInbox(readLine, func(string) {}, stdout), func() {}
}

func promptInbox(readLine func() (string, error), remember func(string), stdout io.Writer) cpu.InboxFunc {
	return func() (int, bool) {
		for {
			line, err := readLine()
			if err != nil {
				return 0, false
			}
			line = strings.TrimSpace(line)
			if line == "" {
				return 0, false
			}
			v, err := strconv.Atoi(line)
			if err != nil {
				fmt.Fprintf(stdout, "not a number: %q\n", line)
				continue
			}
			remember(line)
			return v, true
		}
	}
}
