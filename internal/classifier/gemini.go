package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"tandera.com/daypillar/internal/entity"
)

// GeminiClassifier maps action text to pillar ids with a Gemini model.
type GeminiClassifier struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

func NewGeminiClassifier(ctx context.Context, apiKey, modelName string) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	return &GeminiClassifier{
		client:    client,
		model:     model,
		modelName: modelName,
	}, nil
}

func (c *GeminiClassifier) Method() string { return MethodModel }

func (c *GeminiClassifier) Classify(ctx context.Context, content string, pillars []PillarRef) (entity.PillarSet, string, error) {
	var catalog strings.Builder
	for _, p := range pillars {
		fmt.Fprintf(&catalog, "- %s: %s\n", p.ID, p.Name)
	}

	prompt := fmt.Sprintf(`
You categorize personal tasks into the user's life areas ("pillars").

Task text:
%s

Available pillars (id: name):
%s
Instructions:
1. Pick every pillar that clearly matches the task. Zero matches is a valid answer.
2. Only use ids from the list above. Never invent ids.
3. Output MUST be JSON: {"pillar_ids": ["<id>", ...]}
`, content, catalog.String())

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, "", fmt.Errorf("no response from model")
	}

	type result struct {
		PillarIDs []string `json:"pillar_ids"`
	}

	known := make(map[string]struct{}, len(pillars))
	for _, p := range pillars {
		known[p.ID] = struct{}{}
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		txt, ok := part.(genai.Text)
		if !ok {
			continue
		}

		var parsed result
		if err := json.Unmarshal([]byte(txt), &parsed); err != nil {
			return nil, "", fmt.Errorf("failed to parse model response: %w", err)
		}

		var matched entity.PillarSet
		for _, id := range parsed.PillarIDs {
			if _, ok := known[id]; ok && !matched.Has(id) {
				matched = append(matched, id)
			}
		}
		return matched, c.modelName, nil
	}

	return nil, "", fmt.Errorf("no text content in response")
}

func (c *GeminiClassifier) Close() {
	c.client.Close()
}
