// System prompt assembly.
package agent

import "strings"

// BuildSystemPrompt constructs the system prompt describing the agent's
// research behavior and available tools.
func BuildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a research assistant that answers questions using web tools when helpful.")
	sb.WriteString("\nTools available: web_search (find relevant pages), web_fetch (read a specific URL).")
	sb.WriteString("\n\nGuidelines:")
	sb.WriteString("\n- Use web_search for questions about current events or facts you are unsure of.")
	sb.WriteString("\n- Use web_fetch to read a page returned by a search before citing it.")
	sb.WriteString("\n- If a tool reports an error, explain the limitation and answer from your own knowledge.")
	sb.WriteString("\n- Cite source URLs in the final answer when tools contributed to it.")
	return sb.String()
}
