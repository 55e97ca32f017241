package member

// ActivityKind tags the variant held by an Activity.
type ActivityKind int

const (
	// KindOther covers activities that only expose a name (games without rich presence, streams).
	KindOther ActivityKind = iota
	// KindCustomStatus is the free-form status a member types into their profile.
	KindCustomStatus
	// KindRichPresence is an application-driven activity with state and details lines.
	KindRichPresence
)

func (k ActivityKind) String() string {
	switch k {
	case KindCustomStatus:
		return "custom_status"
	case KindRichPresence:
		return "rich_presence"
	default:
		return "other"
	}
}

// Activity is a closed variant. Only the fields documented for each kind are meaningful:
//
//	KindCustomStatus: Name
//	KindRichPresence: State, Details, Name
//	KindOther:        Name
type Activity struct {
	Kind    ActivityKind
	Name    string
	State   string
	Details string
}

func CustomStatus(name string) Activity {
	return Activity{Kind: KindCustomStatus, Name: name}
}

func RichPresence(name, state, details string) Activity {
	return Activity{Kind: KindRichPresence, Name: name, State: state, Details: details}
}

func Other(name string) Activity {
	return Activity{Kind: KindOther, Name: name}
}

// statusText is the text an activity contributes to the primary status.
func (a Activity) statusText() string {
	switch a.Kind {
	case KindCustomStatus:
		if a.Name != "" {
			return a.Name
		}
	case KindRichPresence:
		return a.State
	}
	return ""
}

// candidateText is the first present of custom name, state, details, name.
func (a Activity) candidateText() string {
	switch a.Kind {
	case KindCustomStatus:
		return a.Name
	case KindRichPresence:
		switch {
		case a.State != "":
			return a.State
		case a.Details != "":
			return a.Details
		default:
			return a.Name
		}
	default:
		return a.Name
	}
}
