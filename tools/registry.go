package tools

// Registry returns every contract definition.
func Registry() []ToolDefinition {
	return []ToolDefinition{
		SessionSummaryDefinition,
		TherapyReplyDefinition,
		IntroductionDefinition,
		WelcomeBackDefinition,
		ConcludingMessageDefinition,
	}
}

// Lookup finds a definition by name.
func Lookup(name string) (ToolDefinition, bool) {
	for _, d := range Registry() {
		if d.Name == name {
			return d, true
		}
	}
	return ToolDefinition{}, false
}
