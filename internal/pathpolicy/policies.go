package pathpolicy

// WorkDirPolicies lists where staging trees and modules may be written on a
// running system: anywhere outside the trees resources are collected from
// and the package manager state.
var WorkDirPolicies = NewPathPolicies(map[string]PathPolicy{
	"/":              {Deny: true},
	"/build":         {},
	"/home":          {},
	"/media":         {},
	"/mnt":           {},
	"/opt":           {},
	"/run":           {},
	"/srv":           {},
	"/tmp":           {},
	"/var":           {},
	"/var/cache/apt": {Deny: true},
	"/var/lib/apt":   {Deny: true},
	"/var/lib/dpkg":  {Deny: true},
})
