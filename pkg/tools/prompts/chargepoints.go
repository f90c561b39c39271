// Package prompts provides prompt templates for use with the MCP server.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Prompt names
const (
	UsagePromptName    = "find_chargepoints_usage"
	ExamplesPromptName = "find_chargepoints_examples"
)

// RegisterChargePointPrompts registers the charge point search prompts with the MCP server
func RegisterChargePointPrompts(s *server.MCPServer) {
	s.AddPrompt(mcp.NewPrompt(UsagePromptName,
		mcp.WithPromptDescription("Instructions for using the find_available_chargepoints tool"),
	), UsagePromptHandler)

	s.AddPrompt(mcp.NewPrompt(ExamplesPromptName,
		mcp.WithPromptDescription("Examples of well formed charge point search addresses"),
	), ExamplesPromptHandler)
}

// UsagePromptHandler returns the main prompt for the charge point tool
func UsagePromptHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	systemPrompt := `You have access to a tool that finds electric vehicle charge points near an address
and reports their live availability.

When using find_available_chargepoints:

1. Pass a single address or place name, e.g. "Alexanderplatz, Berlin"
2. Include the city and country for anything that is not a well known landmark
3. The search covers a few hundred metres around the resolved address, so use the most specific address you have
4. Results are sorted by distance. Each entry lists connectors, payment methods, opening hours and how many points are available, charging or offline
5. "No charging pools found" means nothing is close by. Try a nearby street or district instead

ERROR HANDLING GUIDELINES:
- "Could not find coordinates for address" means geocoding failed. Rephrase the address and retry
- "Geocoding API key is not configured" is a server problem. Tell the user, do not retry`

	return mcp.NewGetPromptResult(
		"Charge Point Search Guidelines",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(systemPrompt),
			),
		},
	), nil
}

// ExamplesPromptHandler returns examples for find_available_chargepoints
func ExamplesPromptHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	examplesPrompt := `EXAMPLES OF EFFECTIVE FIND_AVAILABLE_CHARGEPOINTS USAGE:

User: "Where can I charge my car near the Brandenburg Gate?"
AI: *uses find_available_chargepoints with "Brandenburger Tor, Berlin, Germany"*

User: "Any free chargers around Marienplatz?"
AI: *uses find_available_chargepoints with "Marienplatz, München, Germany"*

User: "I'm at Karl-Marx-Allee 90 in Berlin, is there a charger?"
AI: *uses find_available_chargepoints with "Karl-Marx-Allee 90, 10243 Berlin, Germany"*

ERROR CORRECTION PATTERN:
1. If the address cannot be geocoded, drop details in parentheses and add city and country
2. If no pools are found, retry with a more central address in the same area
3. Report the closest pools first and mention when everything is occupied`

	return mcp.NewGetPromptResult(
		"Charge Point Search Examples",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(examplesPrompt),
			),
		},
	), nil
}
