package langpack

import (
	"encoding/json"
	"fmt"
)

func getStateMapping() []string {
	return []string{
		"START",
		"LOCALE_RECONFIGURED",
		"KEYBOARD_DESCRIPTOR_WRITTEN",
		"SYSTEM_RESOURCES_COLLECTED",
		"BROWSER_RESOURCES_COLLECTED",
		"OFFICE_RESOURCES_COLLECTED",
		"ARTIFACTS_COLLECTED",
		"PACKAGED",
		"DONE",
		"FAILED",
		"SKIPPED",
	}
}

// State is a step of building one locale pack. A build moves through the
// states in order and ends in Done, Failed or Skipped.
type State int

const (
	Start State = iota
	LocaleReconfigured
	KeyboardDescriptorWritten
	SystemResourcesCollected
	BrowserResourcesCollected
	OfficeResourcesCollected
	ArtifactsCollected
	Packaged
	Done
	Failed
	Skipped
)

func (s State) String() string {
	if s < 0 || int(s) >= len(getStateMapping()) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return getStateMapping()[s]
}

// Terminal is true for the states a build ends in.
func (s State) Terminal() bool {
	return s == Done || s == Failed || s == Skipped
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	for n, name := range getStateMapping() {
		if name == str {
			*s = State(n)
			return nil
		}
	}
	return fmt.Errorf("invalid build state: %s", str)
}
