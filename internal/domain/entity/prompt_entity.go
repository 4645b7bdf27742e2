package entity

import "time"

// PromptStyle is a catalogue entry applied to the user's prompt before generation.
type PromptStyle struct {
	ID          int
	Name        string
	Description string
	Instruction string
}

// PromptRequest is one metered generation, kept as history.
type PromptRequest struct {
	ID              string
	UserID          string
	OriginalPrompt  string
	StyleID         *int
	GeneratedPrompt string
	CreatedAt       time.Time
}

// DefaultPromptStyles is the catalogue seeded into a fresh store.
var DefaultPromptStyles = []PromptStyle{
	{ID: 1, Name: "Professional", Description: "Expert approach with precise, competent answers",
		Instruction: "You are a professional expert in this field. Give a precise and competent answer to the following question"},
	{ID: 2, Name: "Creative", Description: "Creative approach with unconventional solutions",
		Instruction: "Approach this question creatively and unconventionally. Offer original ideas and solutions"},
	{ID: 3, Name: "Analytical", Description: "Detailed analysis broken down point by point",
		Instruction: "Analyse this question in a detailed and structured way. Break it down point by point and give a thorough analysis"},
	{ID: 4, Name: "Simple", Description: "Plain explanations for beginners with examples",
		Instruction: "Explain this in simple, clear language for a beginner. Use examples and analogies"},
}
