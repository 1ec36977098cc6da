package domain

// Observation is a snapshot of the environment state taken at the start of a
// loop iteration. Transient; only its summary survives into the step log.
type Observation struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	ContentText string   `json:"content_text"`
	Links       []string `json:"links,omitempty"`
	Buttons     []string `json:"buttons,omitempty"`
	Inputs      []string `json:"inputs,omitempty"`
	Raw         string   `json:"raw,omitempty"`
}

// Summary returns a short human-readable description for the step log.
func (o Observation) Summary() string {
	s := o.Title
	if s == "" {
		s = o.URL
	}
	if len(o.ContentText) > 120 {
		return s + ": " + o.ContentText[:120] + "..."
	}
	if o.ContentText != "" {
		return s + ": " + o.ContentText
	}
	return s
}

// Action is a decision-engine output describing an operation to apply to the
// environment, or a terminal finish signal with a claimed result.
type Action struct {
	Type      ActionType `json:"type"`
	Selector  string     `json:"selector,omitempty"`
	Text      string     `json:"text,omitempty"`
	URL       string     `json:"url,omitempty"`
	Value     string     `json:"value,omitempty"`
	TimeoutMs int        `json:"timeout_ms,omitempty"`
	// Result is the claimed outcome accompanying a finish action.
	Result string `json:"result,omitempty"`
	// Reasoning is the model's free-text justification, kept for the log.
	Reasoning string `json:"reasoning,omitempty"`
}

// Describe returns a short "type target" string for logs.
func (a Action) Describe() string {
	switch a.Type {
	case ActionTypeClick, ActionTypeSelect, ActionTypeWait, ActionTypeType:
		if a.Selector != "" {
			return string(a.Type) + " " + a.Selector
		}
	case ActionTypeNavigate:
		if a.URL != "" {
			return string(a.Type) + " " + a.URL
		}
	case ActionTypeFinish:
		if a.Result != "" {
			return "finish: " + a.Result
		}
	}
	return string(a.Type)
}

// ActionResult is the environment's report after applying an action.
type ActionResult struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}
