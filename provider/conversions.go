package provider

import "polychat/model"

// ThreadFor filters a conversation down to what one provider may see: user
// messages and that provider's own prior answers, in order. Other providers'
// answers are excluded entirely rather than relabeled, so no backend ever
// sees a rival's words attributed to itself.
func ThreadFor(t model.ProviderType, messages []model.Message) []model.Message {
	thread := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if m.FromUser() || m.Origin == t {
			thread = append(thread, m)
		}
	}
	return thread
}

// roleFor maps a message to the two-role scheme shared by the chat APIs.
// The ok result is false for foreign-origin messages, which adapters skip.
func roleFor(t model.ProviderType, m model.Message) (role string, ok bool) {
	switch {
	case m.FromUser():
		return "user", true
	case m.Origin == t:
		return "assistant", true
	default:
		return "", false
	}
}
