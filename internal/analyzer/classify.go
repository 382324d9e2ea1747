package analyzer

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ibeckermayer/narratives/internal/types"
)

// narrativeResponse is the JSON object the classification prompt asks for
type narrativeResponse struct {
	NarrativeFrame string `json:"narrative_frame" jsonschema_description:"Dominant narrative frame such as corruption or media bias"`
	MainSubject    string `json:"main_subject" jsonschema_description:"Person, group or institution the post is about"`
	Stance         string `json:"stance" jsonschema_description:"Stance toward the main subject: supportive, critical, neutral or unclear"`
	TopicFocus     string `json:"topic_focus" jsonschema_description:"Topic focus such as legal, cultural, institutional or personal attack"`
}

var classificationSchema = GenerateSchema[narrativeResponse]()

// ClassifyText classifies the narrative elements of one text. A response that
// is not a recognisable JSON object is kept in RawResponse rather than failing.
func (a *Analyzer) ClassifyText(ctx context.Context, text string) (types.Classification, error) {
	prompt := BuildClassificationPrompt(text, classificationSchema)
	response, err := a.complete(ctx, TaskClassify, prompt)
	if err != nil {
		return types.Classification{}, err
	}

	c := parseClassification(response)
	c.AnalyzedAt = a.now()
	return c, nil
}

// ClassifyPosts classifies each post independently, preserving input order.
func (a *Analyzer) ClassifyPosts(ctx context.Context, posts []types.Post) ([]types.Classification, error) {
	if len(posts) == 0 {
		return nil, nil
	}

	results := make([]types.Classification, len(posts))
	err := a.forEach(ctx, len(posts), func(ctx context.Context, i int) error {
		c, err := a.ClassifyText(ctx, posts[i].Text)
		if err != nil {
			return fmt.Errorf("failed to classify post %s: %w", posts[i].ID, err)
		}
		c.PostID = posts[i].ID
		c.Platform = posts[i].Platform
		results[i] = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.log.WithField("posts", len(posts)).Info("Classified posts")
	return results, nil
}

// ClassifyComponent classifies each platform's side of a cross-platform
// component, with that platform's texts joined into one document. Platforms
// with more than maxPerPlatform posts are skipped (maxPerPlatform <= 0 keeps
// all). Results are ordered by platform name.
func (a *Analyzer) ClassifyComponent(ctx context.Context, byPlatform map[string][]string, maxPerPlatform int) ([]types.Classification, error) {
	platforms := make([]string, 0, len(byPlatform))
	for p, texts := range byPlatform {
		if len(texts) == 0 || (maxPerPlatform > 0 && len(texts) > maxPerPlatform) {
			continue
		}
		platforms = append(platforms, p)
	}
	slices.Sort(platforms)

	results := make([]types.Classification, len(platforms))
	err := a.forEach(ctx, len(platforms), func(ctx context.Context, i int) error {
		c, err := a.ClassifyText(ctx, strings.Join(byPlatform[platforms[i]], "."))
		if err != nil {
			return fmt.Errorf("failed to classify %s posts: %w", platforms[i], err)
		}
		c.Platform = platforms[i]
		results[i] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// parseClassification maps a model response onto a Classification. Keys are
// matched loosely ("Narrative Frame", "narrative-frame" and "narrative_frame"
// are the same field).
func parseClassification(response string) types.Classification {
	var raw map[string]any
	if err := DecodeModelJSON(response, &raw); err != nil {
		return types.Classification{RawResponse: response}
	}

	var c types.Classification
	found := false
	for key, value := range raw {
		s := valueString(value)
		switch normalizeKey(key) {
		case "narrative_frame", "frame":
			c.NarrativeFrame, found = s, true
		case "main_subject", "subject":
			c.MainSubject, found = s, true
		case "topic_focus", "topic":
			c.TopicFocus, found = s, true
		default:
			if strings.HasPrefix(normalizeKey(key), "stance") {
				c.Stance, found = s, true
			}
		}
	}
	if !found {
		c.RawResponse = response
	}
	return c
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	// "1. Narrative Frame" style keys
	key = strings.TrimLeft(key, "0123456789. ")
	return strings.NewReplacer(" ", "_", "-", "_").Replace(key)
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, valueString(e))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
