// Package ai wraps the Gemini client behind a small story-generation
// interface. To the rest of the system this is an opaque collaborator
// that either returns a story payload or an error.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/storyfairy/storyfairy-api/internal/models"
)

// GeneratedStory is the payload the generator returns: a title and one
// sentence per storybook page.
type GeneratedStory struct {
	Title     string   `json:"title"`
	Sentences []string `json:"sentences"`
}

// StoryService holds the Gemini client.
type StoryService struct {
	Client *genai.Client
	Model  string
}

// NewStoryService initializes the Gemini client.
func NewStoryService(ctx context.Context, apiKey, model string) (*StoryService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &StoryService{Client: client, Model: model}, nil
}

func (s *StoryService) Close() error {
	return s.Client.Close()
}

// GenerateStory asks the model for a children's story about the topic.
// Length picks the sentence count, style colors the telling. The reply
// must be the JSON object described in the prompt.
func (s *StoryService) GenerateStory(ctx context.Context, topic, length, style string) (*GeneratedStory, error) {
	model := s.Client.GenerativeModel(s.Model)

	res, err := model.GenerateContent(ctx, genai.Text(storyPrompt(topic, length, style)))
	if err != nil {
		return nil, fmt.Errorf("story generation: %w", err)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("story generation: empty response")
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		sb.WriteString(fmt.Sprintf("%v", part))
	}

	story, err := parseStoryJSON(sb.String())
	if err != nil {
		return nil, err
	}
	return story, nil
}

func storyPrompt(topic, length, style string) string {
	numSentences, ok := models.StorySentenceCounts[length]
	if !ok {
		numSentences = models.StorySentenceCounts["short"]
	}
	if style == "" {
		style = "adventure"
	}
	var subject string
	if topic == "" {
		subject = "a surprise topic of your choosing"
	} else {
		subject = topic
	}
	return fmt.Sprintf(`Write a %s, imaginative and creative %d sentence children's story suitable for young readers about %s. The story should have a happy ending and its style should be %s.
Respond with only a JSON object of the form {"title": "...", "sentences": ["...", ...]} where each sentence is one page of the storybook. No markdown, no commentary.`,
		length, numSentences, subject, style)
}

// parseStoryJSON tolerates the model wrapping its JSON in code fences.
func parseStoryJSON(raw string) (*GeneratedStory, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var story GeneratedStory
	if err := json.Unmarshal([]byte(text), &story); err != nil {
		return nil, fmt.Errorf("story generation: malformed story payload: %w", err)
	}
	if story.Title == "" || len(story.Sentences) == 0 {
		return nil, fmt.Errorf("story generation: incomplete story payload")
	}
	return &story, nil
}
