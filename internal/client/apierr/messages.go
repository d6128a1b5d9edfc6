package apierr

// Disclosure failure messages shown to the user.
const (
	MsgRevealAuth      = "Authentication failed. Please log in again."
	MsgRevealNotFound  = "Credential not found."
	MsgRevealForbidden = "Access denied. You don't have permission to view this password."
	MsgRevealServer    = "Server error. Please try again later."
	MsgRevealNetwork   = "Cannot connect to server. Please check your connection."
	MsgRevealGeneric   = "Failed to decrypt password"
)

// DisclosureMessage maps a failed password reveal to the text presented to the
// user. Every classified kind has its own message.
func DisclosureMessage(err error) string {
	switch KindOf(err) {
	case KindAuth:
		return MsgRevealAuth
	case KindNotFound:
		return MsgRevealNotFound
	case KindForbidden:
		return MsgRevealForbidden
	case KindServer:
		return MsgRevealServer
	case KindNetwork:
		return MsgRevealNetwork
	}
	return MsgRevealGeneric
}
