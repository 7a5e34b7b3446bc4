package constant

// Chat session lifecycle
const (
	SessionStatusActive    = "active"
	SessionStatusEscalated = "escalated"
	SessionStatusResolved  = "resolved"
)

// Message sender kinds
const (
	SenderKindPatient = "patient"
	SenderKindBot     = "bot"
	SenderKindStaff   = "staff"
)

// Escalation lifecycle
const (
	EscalationStatusOpen       = "open"
	EscalationStatusInProgress = "in_progress"
	EscalationStatusResolved   = "resolved"
)

const (
	EscalationPriorityLow    = "low"
	EscalationPriorityMedium = "medium"
	EscalationPriorityHigh   = "high"
)

// Caller roles carried in the JWT "role" claim
const (
	RoleStaff   = "staff"
	RolePatient = "patient"
)

// Organization settings keys
const (
	OrgSettingAiResponderEnabled = "ai_responder_enabled"
)

// In-process bus topics
const (
	TopicMessageAppended = "chat.message.appended"
)

// LLM roles
const (
	LLMRoleSystem    = "system"
	LLMRoleUser      = "user"
	LLMRoleAssistant = "assistant"
)

// PriorityRank orders priorities for staff-side sorting. Higher first.
func PriorityRank(priority string) int {
	switch priority {
	case EscalationPriorityHigh:
		return 3
	case EscalationPriorityMedium:
		return 2
	case EscalationPriorityLow:
		return 1
	}
	return 0
}

// ResponderSystemPromptV1 is filled with subject and organization metadata.
const ResponderSystemPromptV1 = `You are the virtual intake assistant for %s, a medical clinic.
You are talking with a patient while clinic staff may join the conversation at any time.

PATIENT
- Name: %s
- Age: %s
- Gender: %s

RULES
1. Be brief, warm and clear. Ask one question at a time.
2. Collect symptoms, onset, severity and relevant history.
3. Never give a diagnosis or prescribe medication.
4. If symptoms sound urgent, tell the patient to seek emergency care and that staff have been notified.
5. Messages prefixed with "[Clinic staff]" come from human staff; do not contradict them.`
