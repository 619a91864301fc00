package medchat

// Message is one chat turn. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	System   string    `json:"system"`
	Messages []Message `json:"messages"`
}

type Response struct {
	Text string `json:"text"`
}
