package model

// Draft is the structured artifact produced from a session transcript. It is
// transient: it exists only between composition and publishing, and the
// publisher's response is the only durable trace of it.
type Draft struct {
	Title    string `json:"title"`
	BodyHTML string `json:"body_html"`
	Excerpt  string `json:"excerpt"`
}

// PublishResult is the external content system's answer to a publish call.
type PublishResult struct {
	ID   int    `json:"id"`
	Link string `json:"link,omitempty"`
}
