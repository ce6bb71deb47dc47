// Package tools defines the structured-output contracts the text-completion
// collaborator must answer with.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Contracts: record_session_summary, therapy_reply, parse_introduction,
//     welcome_back, concluding_message.
//   - Invariant: every call forces exactly one tool, so the reply is always a
//     single JSON object matching that tool's schema.
package tools
