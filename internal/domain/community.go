package domain

import "time"

type Community struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Slug    string `json:"slug" yaml:"slug"`
	Members int    `json:"members" yaml:"members"`
}

type DebateComment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Debate struct {
	ID        string          `json:"id" yaml:"id"`
	Topic     string          `json:"topic" yaml:"topic"`
	Pro       int             `json:"pro" yaml:"pro"`
	Con       int             `json:"con" yaml:"con"`
	Comments  []DebateComment `json:"comments" yaml:"-"`
	CreatedAt time.Time       `json:"createdAt" yaml:"-"`
}

type MentorReview struct {
	ID     string  `json:"id"`
	Author string  `json:"author"`
	Rating float64 `json:"rating"`
	Text   string  `json:"text"`
}

type Mentor struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Expertise string         `json:"expertise" yaml:"expertise"`
	Rating    float64        `json:"rating" yaml:"rating"`
	Reviews   []MentorReview `json:"reviews" yaml:"-"`
}
