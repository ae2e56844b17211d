// Package fallback synthesizes the responses the gateway returns when the
// inference backend is unreachable or misbehaves. Every function is
// deterministic apart from the timestamps it stamps.
package fallback

import (
	"fmt"
	"time"

	"textbook-gateway/internal/models"
)

const (
	GreetingText = "Hello! I'm your AI tutor, here to assist you with your learning journey. " +
		"I can help you understand complex concepts, provide explanations, and answer your questions. " +
		"Let's make learning engaging and exciting together!"

	ChatText = "I'm having trouble reaching the textbook assistant right now. " +
		"Please try again in a moment, and I'll do my best to help."

	QuizAnswerMessage = "Answer recorded successfully (mock response)"

	PlaceholderThumbnail = "/placeholder.svg?height=100&width=80"
)

var chapterTitles = []string{
	"Introduction",
	"Basic Concepts",
	"Advanced Topics",
	"Case Studies",
	"Practical Applications",
}

// Chapters returns the five placeholder chapters for textbookID.
func Chapters(textbookID string) models.ChapterList {
	chapters := make([]models.Chapter, 0, len(chapterTitles))
	for i, title := range chapterTitles {
		n := i + 1
		chapters = append(chapters, models.Chapter{
			ID:    n,
			Title: title,
			File:  fmt.Sprintf("/api/pdf/%s/%d", textbookID, n),
		})
	}
	return models.ChapterList{
		ID:       textbookID,
		Title:    textbookID + " Textbook",
		Chapters: chapters,
	}
}

// Greeting is returned by /greeting when the backend fails.
func Greeting(hasToken bool) models.ChatResponse {
	return models.ChatResponse{Response: GreetingText, Saved: hasToken, IsQuiz: false}
}

// Chat is returned by /chat when the backend fails.
func Chat(hasToken bool) models.ChatResponse {
	return models.ChatResponse{Response: ChatText, Saved: hasToken, IsQuiz: false}
}

// QuizAnswer synthesizes a progress snapshot for a recorded answer.
func QuizAnswer(isCorrect bool, now time.Time) models.QuizAnswerResponse {
	streak := 0
	if isCorrect {
		streak = 3
	}
	return models.QuizAnswerResponse{
		Success: true,
		Progress: models.ProgressRecord{
			CorrectAnswers: 10,
			TotalAnswers:   15,
			Streak:         streak,
			LastAnswerTime: now.UTC().Format(time.RFC3339),
			TopicsMastered: []string{"Mock Topic 1", "Mock Topic 2"},
			Level:          2,
			XP:             150,
		},
		Message: QuizAnswerMessage,
	}
}

// Progress synthesizes the /user/progress payload.
func Progress(now time.Time) models.ProgressRecord {
	return models.ProgressRecord{
		CorrectAnswers: 12,
		TotalAnswers:   20,
		Streak:         4,
		LastAnswerTime: now.UTC().Format(time.RFC3339),
		TopicsMastered: []string{"Mock Topic 1", "Mock Topic 2", "Mock Topic 3"},
		Level:          3,
		XP:             250,
	}
}

// Catalog is the curated placeholder catalog shown when no textbook has
// been uploaded yet.
func Catalog() []models.Textbook {
	return []models.Textbook{
		{
			ID:         "1",
			Title:      "Physics",
			Author:     "PAUL PETER URONE, ROGER HINRICHS",
			UploadDate: time.Date(2023, time.June, 15, 0, 0, 0, 0, time.UTC),
			Pages:      850,
			Thumbnail:  "/physics.jpeg?height=100&width=80",
		},
		{
			ID:         "2",
			Title:      "Advanced Mathematics",
			Author:     "Jane Doe",
			UploadDate: time.Date(2023, time.July, 22, 0, 0, 0, 0, time.UTC),
			Pages:      512,
			Thumbnail:  PlaceholderThumbnail,
		},
		{
			ID:         "3",
			Title:      "Physics Fundamentals",
			Author:     "Robert Johnson",
			UploadDate: time.Date(2023, time.August, 10, 0, 0, 0, 0, time.UTC),
			Pages:      278,
			Thumbnail:  PlaceholderThumbnail,
		},
	}
}
