package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/starford/ansuz/internal/models"
)

// Interactive reports whether both stdin and stdout are terminals.
// Prompts are skipped in pipes and scripts.
func Interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// Confirm asks a yes/no question on the terminal. Non-interactive
// sessions decline without prompting.
func Confirm(message string) bool {
	if !Interactive() {
		return false
	}
	return confirm(os.Stdin, os.Stdout, message)
}

func confirm(in io.Reader, out io.Writer, message string) bool {
	if message == "" {
		message = "Apply changes?"
	}
	fmt.Fprintf(out, "%s %s ", message, Hint("[y/N]"))
	reader := bufio.NewReader(in)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// ReadLine prompts for one line of input and returns it trimmed.
func ReadLine(prompt string) (string, error) {
	return readLine(os.Stdin, os.Stdout, prompt)
}

func readLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprintf(out, "%s: ", prompt)
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Choose presents a numbered option list plus a skip entry and returns
// the chosen option. ok is false when the user skipped or the input was
// not a valid choice.
func Choose(prompt string, options []string) (choice string, ok bool) {
	return choose(os.Stdin, os.Stdout, prompt, options)
}

func choose(in io.Reader, out io.Writer, prompt string, options []string) (string, bool) {
	fmt.Fprintln(out, prompt)
	for i, opt := range options {
		fmt.Fprintf(out, "  %d. %s\n", i+1, opt)
	}
	fmt.Fprintf(out, "  %d. %s\n", len(options)+1, "skip")
	fmt.Fprintf(out, "Choice %s: ", Hint(fmt.Sprintf("[1-%d]", len(options)+1)))

	reader := bufio.NewReader(in)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(options) {
		return "", false
	}
	return options[n-1], true
}

// ShowCandidate prints one inbox candidate with its position in the batch.
func ShowCandidate(out io.Writer, c models.EmailCandidate, index, total int, classified string) {
	fmt.Fprintf(out, "\n%s\n", Bold.Render(fmt.Sprintf("[%d/%d] %s", index+1, total, c.Subject)))
	fmt.Fprintf(out, "  %s %s\n", Muted.Render("from:"), c.Sender)
	fmt.Fprintf(out, "  %s %s\n", Muted.Render("date:"), c.Date)
	if classified != "" {
		fmt.Fprintf(out, "  %s %s\n", Muted.Render("collection:"), Accent.Render(classified))
	}
	if preview := Truncate(strings.TrimSpace(c.Body), 200); preview != "" {
		fmt.Fprintf(out, "  %s\n", preview)
	}
}
