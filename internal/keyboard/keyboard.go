// Package keyboard renders the per-user keyboard layout configuration of the
// Xfce desktop (an xfconf channel document).
package keyboard

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DescriptorPath is where new user accounts pick the layout up from.
	DescriptorPath = "/etc/skel/.config/xfce4/xfconf/xfce-perchannel-xml/keyboard-layout.xml"

	// FallbackLayout is always the first layout of the pair.
	FallbackLayout = "us"

	DefaultToggle = "grp:alt_shift_toggle"
)

// Layout is a pair of XKB layouts the user can toggle between.
type Layout struct {
	// Layout is the XKB id of the locale's layout, appended after
	// FallbackLayout.
	Layout      string
	Description string
	// Toggle is the XKB option switching between the groups.
	Toggle string
}

func NewLayout(layout, description string) Layout {
	return Layout{
		Layout:      layout,
		Description: description,
		Toggle:      DefaultToggle,
	}
}

// XkbLayout returns the comma separated layout list, "us,fr" for French and
// "us,us" for locales using the default layout. A Layout without a locale
// layout is the plain FallbackLayout.
func (l Layout) XkbLayout() string {
	if l.Layout == "" {
		return FallbackLayout
	}
	return FallbackLayout + "," + l.Layout
}

// XkbVariant returns one empty variant per layout.
func (l Layout) XkbVariant() string {
	return strings.Repeat(",", strings.Count(l.XkbLayout(), ","))
}

type channel struct {
	XMLName    xml.Name   `xml:"channel"`
	Name       string     `xml:"name,attr"`
	Version    string     `xml:"version,attr"`
	Properties []property `xml:"property"`
}

type property struct {
	Name       string     `xml:"name,attr"`
	Type       string     `xml:"type,attr"`
	Value      *string    `xml:"value,attr,omitempty"`
	Properties []property `xml:"property,omitempty"`
}

func stringProperty(name, value string) property {
	return property{Name: name, Type: "string", Value: &value}
}

func boolProperty(name string, value bool) property {
	v := fmt.Sprintf("%t", value)
	return property{Name: name, Type: "bool", Value: &v}
}

func (l Layout) document() channel {
	options := property{Name: "XkbOptions", Type: "empty"}
	if l.Toggle != "" {
		options.Properties = []property{stringProperty("Group", l.Toggle)}
	}

	return channel{
		Name:    "keyboard-layout",
		Version: "1.0",
		Properties: []property{
			{
				Name: "Default",
				Type: "empty",
				Properties: []property{
					boolProperty("XkbDisable", false),
					stringProperty("XkbLayout", l.XkbLayout()),
					stringProperty("XkbVariant", l.XkbVariant()),
					options,
				},
			},
		},
	}
}

// Write renders the xfconf document for the layout.
func (l Layout) Write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(l.document()); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteDescriptor writes the document below root at DescriptorPath and
// returns the path of the written file.
func (l Layout) WriteDescriptor(root string) (string, error) {
	name := filepath.Join(root, filepath.FromSlash(DescriptorPath))
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return "", err
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}
	if err := l.Write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("cannot write keyboard descriptor: %w", err)
	}
	return name, f.Close()
}
