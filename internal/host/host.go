// Package host drives the package manager, locale and keyboard tooling of
// the system a locale pack is built on.
package host

import (
	"github.com/sirupsen/logrus"
)

type System struct {
	Root string

	Packages *Apt
	Locales  *Locales
	Keyboard *Keyboard
}

// New returns the tooling of the system below root. Commands run in a
// chroot unless root is "/".
func New(root string, logger logrus.FieldLogger) *System {
	if root == "" {
		root = "/"
	}
	r := &runner{root: root, logger: logger}
	apt := &Apt{r: r}
	return &System{
		Root:     root,
		Packages: apt,
		Locales:  &Locales{r: r, apt: apt},
		Keyboard: &Keyboard{r: r, apt: apt},
	}
}
