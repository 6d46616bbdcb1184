package host

import (
	"fmt"
	"strings"
)

// Selection is a debconf answer given before a package is configured.
type Selection struct {
	Package  string
	Question string
	Type     string
	Value    string
}

func (s Selection) String() string {
	return fmt.Sprintf("%s %s %s %s", s.Package, s.Question, s.Type, s.Value)
}

// Apt installs and removes packages without asking questions.
type Apt struct {
	r *runner
}

// Preseed stores debconf answers so that the next configuration of the
// owning packages does not prompt.
func (a *Apt) Preseed(selections ...Selection) error {
	if len(selections) == 0 {
		return nil
	}
	var lines strings.Builder
	for _, s := range selections {
		lines.WriteString(s.String())
		lines.WriteByte('\n')
	}
	_, err := a.r.run(strings.NewReader(lines.String()), "debconf-set-selections")
	return err
}

func (a *Apt) Install(packages ...string) error {
	return a.apt("install", packages...)
}

// Reinstall installs packages again, which runs their configuration with
// the current debconf answers.
func (a *Apt) Reinstall(packages ...string) error {
	return a.apt("install", append([]string{"--reinstall"}, packages...)...)
}

func (a *Apt) Remove(packages ...string) error {
	return a.apt("purge", packages...)
}

func (a *Apt) apt(verb string, args ...string) error {
	if len(args) == 0 {
		return nil
	}
	cmdArgs := append([]string{verb, "--yes", "--no-install-recommends", "-o", "Dpkg::Options::=--force-confnew"}, args...)
	_, err := a.r.run(nil, "apt-get", cmdArgs...)
	return err
}
