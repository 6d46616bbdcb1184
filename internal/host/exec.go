package host

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// var alias for exec.Command() that can be mocked for testing
var execCommand = exec.Command

// number of stderr lines kept in a CommandError
const stderrTail = 20

// A CommandError is returned when an external tool fails.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed", strings.Join(e.Args, " "))
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" with exit status %d", e.ExitCode)
	} else if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

type runner struct {
	// commands are run inside this root via chroot unless it is "/"
	root   string
	logger logrus.FieldLogger
}

func (r *runner) command(name string, args ...string) *exec.Cmd {
	if r.root != "" && r.root != "/" {
		args = append([]string{r.root, name}, args...)
		name = "chroot"
	}
	cmd := execCommand(name, args...)
	cmd.Env = append(os.Environ(),
		"DEBIAN_FRONTEND=noninteractive",
		"DEBCONF_NONINTERACTIVE_SEEN=true",
		"LC_ALL=C",
	)
	return cmd
}

// run executes a tool and returns its standard output. stdin may be nil.
func (r *runner) run(stdin io.Reader, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := r.command(name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.WithField("command", strings.Join(cmd.Args, " ")).Debug("Running")
	if err := cmd.Run(); err != nil {
		cerr := &CommandError{
			Args:   cmd.Args,
			Stderr: tail(stderr.String(), stderrTail),
			Err:    err,
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			cerr.ExitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), cerr
	}
	return stdout.Bytes(), nil
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
