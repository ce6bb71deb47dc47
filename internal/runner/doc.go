// Package runner implements flows.Completer over the provider APIs.
//
// Every call is a single request/response. The contract's tool is the only
// tool offered and the model is forced to call it, so the tool input is the
// structured output.
//
// Request shape:
//
//	system(prompt) + user(windowed history rendered as a chat log, then the prompt)
//	  -> assistant(tool_use <contract>) -> tool input JSON
package runner
