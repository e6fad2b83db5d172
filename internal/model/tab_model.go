package model

type Tab struct {
	ID          string `json:"id" validate:"required"`
	DisplayName string `json:"displayName"`
}

// TabSnapshot is the externally visible state of the tab manager.
type TabSnapshot struct {
	Tabs          []Tab  `json:"tabs"`
	ActiveTabID   string `json:"active_tab_id"`
	PendingClose  string `json:"pending_close,omitempty"`
	Transitioning bool   `json:"transitioning"`
}
