package domain

// Caller identifies who issued a request, for rate limiting and analytics.
type Caller struct {
	UserID    string
	IP        string
	UserAgent string
}

// Identifier is the rate-limit key: the user when authenticated, else the IP.
func (c Caller) Identifier() string {
	switch {
	case c.UserID != "":
		return "user:" + c.UserID
	case c.IP != "":
		return "ip:" + c.IP
	default:
		return "anonymous"
	}
}
