package common

import (
	"runtime"
	"sort"
)

var RuntimeGOARCH = runtime.GOARCH

// CurrentArch returns the Debian name of the architecture the binary runs on.
func CurrentArch() string {
	switch RuntimeGOARCH {
	case "386":
		return "i386"
	case "arm":
		return "armhf"
	case "ppc64le":
		return "ppc64el"
	case "mips64le":
		return "mips64el"
	default:
		return RuntimeGOARCH
	}
}

// IsStringInSortedSlice returns true if the string is present, false if not
// slice must be sorted
func IsStringInSortedSlice(slice []string, s string) bool {
	i := sort.SearchStrings(slice, s)
	if i < len(slice) && slice[i] == s {
		return true
	}
	return false
}
