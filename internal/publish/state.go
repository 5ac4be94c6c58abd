package publish

// State is a stage of a publish run. A run moves strictly forward through
// the states in Steps and ends in StateDone or StateFailed.
type State int

const (
	StateBuilding State = iota
	StateResolvingRepository
	StateUploadingBlobs
	StateAssemblingCommit
	StateUpdatingRef
	StateEnablingPages
	StateDone
	StateFailed
)

// Steps lists the working states of a run, in the order they execute
var Steps = []State{
	StateBuilding,
	StateResolvingRepository,
	StateUploadingBlobs,
	StateAssemblingCommit,
	StateUpdatingRef,
	StateEnablingPages,
}

var stateNames = map[State]string{
	StateBuilding:            "Building",
	StateResolvingRepository: "ResolvingRepository",
	StateUploadingBlobs:      "UploadingBlobs",
	StateAssemblingCommit:    "AssemblingCommit",
	StateUpdatingRef:         "UpdatingRef",
	StateEnablingPages:       "EnablingPages",
	StateDone:                "Done",
	StateFailed:              "Failed",
}

var stateDescriptions = map[State]string{
	StateBuilding:            "Build site",
	StateResolvingRepository: "Create or locate repository",
	StateUploadingBlobs:      "Upload files",
	StateAssemblingCommit:    "Create tree and commit",
	StateUpdatingRef:         "Update publish branch",
	StateEnablingPages:       "Enable GitHub Pages",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Description is the progress line shown for a working state
func (s State) Description() string {
	return stateDescriptions[s]
}

// StepDescriptions returns the descriptions of Steps, indexed like Steps
func StepDescriptions() []string {
	descriptions := make([]string, len(Steps))
	for i, s := range Steps {
		descriptions[i] = s.Description()
	}
	return descriptions
}
