package constant

const (
	GeneralSeedMessage = "Hello Doctor! I'm your clinical assistant. Ask me anything about your patients."

	PatientSeedMessage = "This is the patient's conversation. Ask about their history, or start a session to begin the consultation."

	PatientSessionSeedMessage = "Session in progress. Ask me anything about this patient."

	FallbackMessage = "There was an error processing your request."

	NoResponseMessage = "No response"
)

// Key-value storage keys.
const (
	StorageKeyActiveTabs = "activeTabs"

	// StorageKeySessionStarted is formatted with the conversation key and message index.
	StorageKeySessionStarted = "sessionStarted_%s_%d"

	// StorageKeyPatientHistory is formatted with the patient id.
	StorageKeyPatientHistory = "patientHistory_%s"
)

const (
	GeneralRoutePath = "/"
	PatientRoutePath = "/user/"
)

// WebSocket envelope types.
const (
	EventConversationUpdated = "conversation.updated"
	EventNavigate            = "navigate"
	EventTabsUpdated         = "tabs.updated"
	EventToast               = "toast"
	EventNotificationLog     = "notification.log"
)
