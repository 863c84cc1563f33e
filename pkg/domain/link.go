package domain

// Link is what the link API hands back for a prompt.
type Link struct {
	Prompt       string `json:"prompt"`
	Token        string `json:"token"`
	URL          string `json:"url"`
	AssistantURL string `json:"assistantUrl"`
}
