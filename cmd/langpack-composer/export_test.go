package main

var (
	Run          = run
	ParseConfig  = parseConfig
	SetupLogging = setupLogging
	PrintError   = printError
)

type ComposerConfig = composerConfig

func MockGeteuid(euid int) (restore func()) {
	saved := geteuid
	geteuid = func() int {
		return euid
	}
	return func() {
		geteuid = saved
	}
}
