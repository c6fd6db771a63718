package ir

// ValidateTools checks every tool before translation. The first violation is
// returned as a Translation error naming the offending index and tool.
func ValidateTools(tools []Tool) error {
	for i, t := range tools {
		switch {
		case t.Name == "":
			return NewTranslationError(i, "tool at index %d has an empty name", i)
		case t.Description == "":
			return NewTranslationError(i, "tool %q at index %d has an empty description", t.Name, i)
		case t.InputSchema.Type != "object":
			return NewTranslationError(i, "tool %q at index %d: input_schema.type must be \"object\", got %q", t.Name, i, t.InputSchema.Type)
		case t.InputSchema.Properties == nil:
			return NewTranslationError(i, "tool %q at index %d: input_schema has no properties map", t.Name, i)
		}
	}
	return nil
}

// ValidateMessages checks that every message has a canonical role.
func ValidateMessages(messages []Message) error {
	for i, m := range messages {
		if !m.Role.Valid() {
			return NewTranslationError(i, "message at index %d has invalid role %q", i, m.Role)
		}
	}
	return nil
}
