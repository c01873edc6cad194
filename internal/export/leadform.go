package export

// FormPrompt is what the browser needs to surface the lead-capture form.
type FormPrompt struct {
	Provider      string `json:"provider"`
	PortalID      string `json:"portal_id"`
	FormID        string `json:"form_id"`
	SessionID     string `json:"session_id"`
	CompletionURL string `json:"completion_url,omitempty"`
}

// LeadForm surfaces the lead-capture form for an export session. The widget
// reports successful submission back through the completion URL; its own fields
// are never inspected.
type LeadForm interface {
	Prompt(sessionID string) FormPrompt
}

// HubSpotForm is an embedded HubSpot form.
type HubSpotForm struct {
	PortalID string
	FormID   string
}

// Prompt implements LeadForm.
func (f HubSpotForm) Prompt(sessionID string) FormPrompt {
	return FormPrompt{
		Provider:  "hubspot",
		PortalID:  f.PortalID,
		FormID:    f.FormID,
		SessionID: sessionID,
	}
}
