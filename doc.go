/*
Package lmrtfy ("let me replit that for you") turns a coding question into a
shareable link. Opening the link plays a short scripted demo that shows the
visitor where to ask Replit AI and types the question for them, then hands
over a direct link to the assistant with the prompt prefilled.

# Layout

  - pkg/token encodes prompts into compact URL-safe tokens (gzip + base64url)
    and decodes them back, falling back to the legacy percent-encoded format.
  - pkg/playback is the demo engine: a pure state machine with generation
    tagged timers, a virtual-clock simulation and a clock-driven Player.
  - pkg/analytics records link events and summarizes them; storage is behind
    ports.EventStore with memory and Redis adapters.
  - pkg/adapters/http serves the API, the link page and SSE streams.
  - pkg/adapters/mcp exposes the same operations as MCP tools.

# Usage

	tok := token.Encode("How do I reverse a list in Python?")
	link := "https://lmrtfy.example/replit?q=" + tok

	prompt := token.Decode(tok)

The cmd/lmrtfy binary wires everything together:

	lmrtfy serve --config lmrtfy.yaml
	lmrtfy encode "How do I reverse a list?"
	lmrtfy play --token <q>
*/
package lmrtfy
