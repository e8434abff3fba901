package models

// PlaybookSection is one of the fixed categories playbooks are grouped by.
type PlaybookSection string

const (
	SectionFailingToClose   PlaybookSection = "failing-to-close"
	SectionDealsDropOff     PlaybookSection = "deals-drop-off"
	SectionNotMovingForward PlaybookSection = "not-moving-forward"
	SectionACVOffWhack      PlaybookSection = "acv-off-whack"
)

// SectionInfo describes a playbook section for display.
type SectionInfo struct {
	ID          PlaybookSection `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
}

var sections = []SectionInfo{
	{
		ID:    SectionFailingToClose,
		Title: "Rep is failing to close deals",
		Description: "Comprehensive playbooks designed to help sales reps overcome common obstacles in the deal " +
			"closure process, including objection handling, pricing negotiations, and timing issues.",
	},
	{
		ID:    SectionDealsDropOff,
		Title: "Deals drop off in negotiation",
		Description: "Strategic approaches to prevent deal abandonment during critical negotiation phases, " +
			"with focus on maintaining momentum and addressing buyer concerns.",
	},
	{
		ID:    SectionNotMovingForward,
		Title: "Rep is not moving deals forward in earlier stages",
		Description: "Tactical workflows to accelerate deal progression through discovery, qualification, " +
			"and proposal stages with systematic follow-up strategies.",
	},
	{
		ID:    SectionACVOffWhack,
		Title: "ACV optimization strategies",
		Description: "Data-driven approaches to optimize Annual Contract Value through upselling, " +
			"cross-selling, and strategic pricing adjustments.",
	},
}

// Sections returns the playbook sections in display order.
func Sections() []SectionInfo {
	out := make([]SectionInfo, len(sections))
	copy(out, sections)

	return out
}

func (s PlaybookSection) Valid() bool {
	for _, info := range sections {
		if info.ID == s {
			return true
		}
	}

	return false
}

// Title returns the display title of the section, or the raw id when unknown.
func (s PlaybookSection) Title() string {
	for _, info := range sections {
		if info.ID == s {
			return info.Title
		}
	}

	return string(s)
}
