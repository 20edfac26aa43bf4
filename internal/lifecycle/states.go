package lifecycle

// Project lifecycle states. Finished and Stopped are terminal: no transition
// leads out of them.
const (
	StateRequested  = "requested"
	StateScoped     = "scoped"
	StateIntroduced = "introduced"
	StateSigned     = "signed"
	StateProgress   = "progress"
	StateFinished   = "finished"
	StateStopped    = "stopped"
)

// InitialState is the state every new project starts in.
const InitialState = StateRequested

// AnySource marks a transition usable from every state.
const AnySource = "*"

// Transition describes one legal move between lifecycle states. Help and
// Fields are presentation hints for UI collaborators: Fields names the
// project attributes worth reviewing at that step.
type Transition struct {
	Name   string   `json:"name"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Help   string   `json:"help"`
	Fields []string `json:"fields,omitempty"`
}

// Transitions is the full transition table, consulted both to validate state
// changes and to render available actions.
var Transitions = []Transition{
	{
		Name:   "scope",
		Source: StateRequested,
		Target: StateScoped,
		Help:   "This project was scoped, on email or call",
		Fields: []string{"location", "daily_rate", "notes"},
	},
	{
		Name:   "introduce",
		Source: StateScoped,
		Target: StateIntroduced,
		Help:   "Introduced to the end client",
		Fields: []string{"organization", "notes"},
	},
	{
		Name:   "sign",
		Source: StateIntroduced,
		Target: StateSigned,
		Help:   "Contract signed",
		Fields: []string{"organization", "notes"},
	},
	{
		Name:   "start",
		Source: StateSigned,
		Target: StateProgress,
		Help:   "Started working",
		Fields: []string{"notes"},
	},
	{
		Name:   "finish",
		Source: StateProgress,
		Target: StateFinished,
		Help:   "Finished working",
		Fields: []string{"notes"},
	},
	{
		Name:   "drop",
		Source: AnySource,
		Target: StateStopped,
		Help:   "Project dropped",
		Fields: []string{"notes"},
	},
}

// StateColors maps each state to its display color.
var StateColors = map[string]string{
	StateRequested:  "#71b2d4",
	StateScoped:     "#43b1b0",
	StateIntroduced: "#71b2d4",
	StateSigned:     "#189370",
	StateProgress:   "#43b1b0",
	StateFinished:   "#246060",
	StateStopped:    "#cd3238",
}

// StateColor returns the display color for a state, defaulting to black.
func StateColor(state string) string {
	if color, ok := StateColors[state]; ok {
		return color
	}
	return "#000"
}

// FindTransition returns the transition with the given name.
func FindTransition(name string) (Transition, bool) {
	for _, t := range Transitions {
		if t.Name == name {
			return t, true
		}
	}
	return Transition{}, false
}

// allowedFrom reports whether the transition may fire from a state. The
// wildcard source matches every state except the stopped sink itself.
func (t Transition) allowedFrom(state string) bool {
	if t.Source == AnySource {
		return state != t.Target
	}
	return t.Source == state
}

// AvailableFrom returns the transitions legal from the given state.
func AvailableFrom(state string) []Transition {
	var available []Transition
	for _, t := range Transitions {
		if t.allowedFrom(state) {
			available = append(available, t)
		}
	}
	return available
}

// ValidState reports whether the value is a defined lifecycle state.
func ValidState(state string) bool {
	_, ok := StateColors[state]
	return ok
}
