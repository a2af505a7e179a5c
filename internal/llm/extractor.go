// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based structured output.
// It provides a reusable way to define what JSON a model must return.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "Storyboard", "ContentReview")
	Description string        // System prompt preamble describing the task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Ground every field in the input, do not invent unrelated content.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// StoryboardSchema returns the output schema for reel planning.
// The planner turns a user prompt into an ordered scene list with mood hints.
func StoryboardSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "Storyboard",
		Description: `You are an expert short-form video director. Your task is to plan a vertical short video from a creative brief.
Break the video into scenes that together fit the requested duration.
Each scene needs a vivid visual description suitable for a text-to-video model, and a narration line when the brief asks for narration.`,
		Fields: []SchemaField{
			{
				Name:        "scenes",
				Type:        "[{\"number\": int, \"description\": \"string\", \"duration\": float, \"script\": \"string\"}]",
				Description: "Ordered scenes; durations in seconds must sum to the requested total",
				Required:    true,
			},
			{
				Name:        "mood_hints",
				Type:        "[\"string\"]",
				Description: "Adjectives describing the audio mood (e.g., 'upbeat', 'cinematic')",
				Required:    false,
			},
		},
	}
}

// RefinedPromptsSchema returns the output schema for prompt refinement.
// The refiner rewrites scene descriptions into generation-ready prompts.
func RefinedPromptsSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "RefinedPrompts",
		Description: `You are an expert prompt engineer for text-to-video models. Your task is to rewrite storyboard scenes into detailed generation prompts.
Each prompt must specify subject, camera movement, lighting, and style, tuned to the target model's strengths.
Predict, per prompt, how likely the target model is to render it faithfully.`,
		Fields: []SchemaField{
			{
				Name:        "prompts",
				Type:        "[{\"scene_number\": int, \"prompt\": \"string\", \"quality_prediction\": float}]",
				Description: "One refined prompt per scene; quality_prediction in [0,1]",
				Required:    true,
			},
		},
	}
}

// ContentReviewSchema returns the output schema for the quality reviewer.
// Scores are on a 0-10 scale; the technical dimension is computed
// separately from deterministic checks and is not requested here.
func ContentReviewSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "ContentReview",
		Description: `You are an expert social video reviewer. Your task is to score a finished short video against its creative brief and target platform.
Judge how well the content matches the brief, how on-brand it feels, how well it fits the platform's format and audience, and how likely it is to hold attention.`,
		Fields: []SchemaField{
			{
				Name:        "content",
				Type:        "float",
				Description: "Fidelity to the brief, 0-10",
				Required:    true,
			},
			{
				Name:        "brand",
				Type:        "float",
				Description: "Brand/tone alignment, 0-10",
				Required:    true,
			},
			{
				Name:        "platform",
				Type:        "float",
				Description: "Platform format and audience fit, 0-10",
				Required:    true,
			},
			{
				Name:        "engagement",
				Type:        "float",
				Description: "Predicted audience retention, 0-10",
				Required:    true,
			},
			{
				Name:        "notes",
				Type:        "{\"dimension\": \"improvement note\"}",
				Description: "Concrete improvement suggestions keyed by dimension",
				Required:    false,
			},
		},
	}
}
