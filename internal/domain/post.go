package domain

import "time"

// Comment y Post se serializan con _id y camelCase, el formato que consume el frontend.
type Comment struct {
	ID        string    `json:"_id"`
	PostID    string    `json:"postId"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Post struct {
	ID            string    `json:"_id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Author        string    `json:"author"`
	CommunitySlug string    `json:"communitySlug"`
	Upvotes       int       `json:"upvotes"`
	Comments      []Comment `json:"comments"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
