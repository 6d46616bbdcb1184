package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/osbuild/langpack-composer/internal/keyboard"
)

const (
	// KeyboardDefaults is the console and X11 keyboard configuration.
	KeyboardDefaults = "/etc/default/keyboard"

	keyboardPackage = "keyboard-configuration"
)

// Keyboard configures the system keyboard layout.
type Keyboard struct {
	r   *runner
	apt *Apt
}

// Apply switches the system keyboard to the layout pair.
func (k *Keyboard) Apply(layout keyboard.Layout) error {
	selections := []Selection{
		{keyboardPackage, "keyboard-configuration/layoutcode", "string", layout.XkbLayout()},
		{keyboardPackage, "keyboard-configuration/variantcode", "string", layout.XkbVariant()},
		{keyboardPackage, "keyboard-configuration/optionscode", "string", layout.Toggle},
	}
	if layout.Layout != "" {
		selections = append(selections,
			Selection{keyboardPackage, "keyboard-configuration/xkb-keymap", "select", layout.Layout})
	}
	if err := k.apt.Preseed(selections...); err != nil {
		return fmt.Errorf("cannot preseed %s: %w", keyboardPackage, err)
	}

	// the configuration script prefers the existing file over debconf
	defaults := filepath.Join(k.r.root, KeyboardDefaults)
	if err := os.Remove(defaults); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	_, err := k.r.run(nil, "dpkg-reconfigure", "--frontend", "noninteractive", keyboardPackage)
	return err
}
