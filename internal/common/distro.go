package common

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// OSRelease is the subset of os-release(5) the build cares about.
type OSRelease struct {
	ID              string
	VersionID       string
	VersionCodename string
	PrettyName      string
}

// ReadOSRelease reads etc/os-release below root, falling back to
// usr/lib/os-release like systemd does.
func ReadOSRelease(root string) (*OSRelease, error) {
	var f *os.File
	var err error
	for _, name := range []string{"etc/os-release", "usr/lib/os-release"} {
		f, err = os.Open(filepath.Join(root, name))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	osrelease, err := readOSRelease(f)
	if err != nil {
		return nil, err
	}
	return &OSRelease{
		ID:              osrelease["ID"],
		VersionID:       osrelease["VERSION_ID"],
		VersionCodename: osrelease["VERSION_CODENAME"],
		PrettyName:      osrelease["PRETTY_NAME"],
	}, nil
}

func readOSRelease(r io.Reader) (map[string]string, error) {
	osrelease := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, errors.New("readOSRelease: invalid input")
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if len(value) > 0 && (value[0] == '"' || value[0] == '\'') {
			if len(value) < 2 || value[len(value)-1] != value[0] {
				return nil, errors.New("readOSRelease: invalid input")
			}
			value = value[1 : len(value)-1]
		}

		osrelease[key] = value
	}

	return osrelease, scanner.Err()
}
