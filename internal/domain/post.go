package domain

import "time"

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaGIF   MediaType = "gif"
)

type Media struct {
	Type  MediaType
	Count int
}

// Post is one collected item. The pipeline only mutates ValueScore;
// everything else is fixed once the extractor builds it.
type Post struct {
	Link        string // canonical permalink, primary dedup key
	Author      string // handle, without @
	DisplayName string
	Verified    bool
	Text        string
	PostedAt    time.Time

	Likes   int
	Reposts int
	Replies int
	Views   int

	Media    []Media
	Hashtags []string
	Mentions []string
	Links    []string

	IsRepost bool
	IsReply  bool

	Source string // target/query that produced it

	ValueScore float64
}

// Engagement is the combined interaction total used by dedup upgrades
// and the engagement sub-score.
func (p Post) Engagement() int {
	return p.Likes + p.Reposts + p.Replies
}

func (p Post) HasMedia() bool {
	for _, m := range p.Media {
		if m.Count > 0 {
			return true
		}
	}
	return false
}

func (p Post) MediaCount() int {
	n := 0
	for _, m := range p.Media {
		n += m.Count
	}
	return n
}
