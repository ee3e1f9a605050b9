package shortener

import "time"

// Code represents a short link code.
type Code string

// Link maps a short code to the URL it redirects to. Links are never updated.
type Link struct {
	Code        Code
	OriginalURL string
	CreatedAt   time.Time
}

// Path returns the request path that resolves the link.
func (l *Link) Path() string {
	return "/" + string(l.Code)
}
