package model

import "time"

type NewsItem struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published,omitempty"`
}
