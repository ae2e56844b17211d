package models

import "time"

// Textbook is the metadata record kept for every uploaded textbook.
type Textbook struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	UploadDate time.Time `json:"uploadDate"`
	Pages      int       `json:"pages"`
	Thumbnail  string    `json:"thumbnail"`
	FileURL    string    `json:"fileUrl,omitempty"`
}

type Chapter struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	File  string `json:"file"`
}

type ChapterList struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Chapters []Chapter `json:"chapters"`
}

type UploadResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Textbook Textbook `json:"textbook"`
}
