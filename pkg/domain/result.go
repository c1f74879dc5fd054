package domain

// Result is the terminal view produced when a session reaches a result node.
type Result struct {
	Renderer        string          `json:"renderer,omitempty"`
	Summary         Summary         `json:"summary"`
	Recommendations Recommendations `json:"recommendations"`
}

// Summary condenses the session context.
type Summary struct {
	TopTraits []string         `json:"top_traits"`
	Variables map[string]Value `json:"variables"`
	Answers   map[string]Value `json:"answers"`
}

// Recommendations is filled by systems downstream of the engine.
// The engine always emits every category as an empty list.
type Recommendations struct {
	Careers      []any `json:"careers"`
	Colleges     []any `json:"colleges"`
	Exams        []any `json:"exams"`
	Scholarships []any `json:"scholarships"`
}

// EmptyRecommendations returns the placeholder with all categories present.
func EmptyRecommendations() Recommendations {
	return Recommendations{
		Careers:      []any{},
		Colleges:     []any{},
		Exams:        []any{},
		Scholarships: []any{},
	}
}
