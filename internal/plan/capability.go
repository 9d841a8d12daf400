package plan

import "strings"

// Capability identifies which provider handles a step.
type Capability string

const (
	CapabilityKnowledge     Capability = "knowledge"
	CapabilitySearch        Capability = "search"
	CapabilityMessaging     Capability = "messaging"
	CapabilityCommunication Capability = "communication"
	CapabilityCalendar      Capability = "calendar"
	CapabilityUnknown       Capability = "unknown"
)

// ParseCapability maps a planner-supplied agent name to a capability.
// Unrecognized names are not an error; they map to CapabilityUnknown and
// execute as a simulated no-op.
func ParseCapability(agent string) Capability {
	name := strings.ToLower(strings.TrimSpace(agent))
	name = strings.TrimSuffix(name, "agent")
	name = strings.Trim(name, " _-")

	switch name {
	case "knowledge", "docs", "documents":
		return CapabilityKnowledge
	case "search", "websearch", "web":
		return CapabilitySearch
	case "messaging", "message", "slack", "telegram", "discord", "chat":
		return CapabilityMessaging
	case "communication", "twilio", "voice", "sms", "phone":
		return CapabilityCommunication
	case "calendar":
		return CapabilityCalendar
	default:
		return CapabilityUnknown
	}
}
