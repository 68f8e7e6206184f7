package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	oa "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/loykin/groovewatch/internal/models"
)

const defaultModel = "gpt-4o-mini"

// OpenAI implements Analyzer with chat completions. Every view is a single
// prompt returning JSON (or a one-liner for Validate).
type OpenAI struct {
	client oa.Client
	model  string
}

// NewOpenAI builds the analyzer. model may be empty to use the default.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("analysis: missing OpenAI API key")
	}
	if model == "" {
		model = defaultModel
	}
	return &OpenAI{
		client: oa.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (c *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{oa.UserMessage(prompt)},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("analysis: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		if i := strings.LastIndexByte(s, '\n'); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func (c *OpenAI) completeJSON(ctx context.Context, prompt string, out any) error {
	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), out); err != nil {
		return fmt.Errorf("analysis: decode response: %w", err)
	}
	return nil
}

// Suggestions implements Analyzer.
func (c *OpenAI) Suggestions(ctx context.Context, recent []models.PlaybackEvent) ([]models.Suggestion, error) {
	if len(recent) == 0 {
		return nil, nil
	}
	var sb strings.Builder
	for i, ev := range recent {
		if i == 20 {
			break
		}
		fmt.Fprintf(&sb, "- %s by %s\n", ev.Name, ev.Artist)
	}
	prompt := fmt.Sprintf(`Based on these recently played songs, suggest 5 songs the listener might enjoy.

Recently played:
%s
Return ONLY a JSON array with exactly 5 suggestions. Each entry has:
- "song": the song title
- "artist": the artist name
- "reason": a brief reason why they might like it (max 15 words)

Match the mood, genre, and style of the recent listening. No other text.`, sb.String())

	var suggestions []models.Suggestion
	if err := c.completeJSON(ctx, prompt, &suggestions); err != nil {
		return nil, err
	}
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions, nil
}

// ClassifyGenres implements Analyzer.
func (c *OpenAI) ClassifyGenres(ctx context.Context, artists []ArtistSample) (map[string]string, error) {
	if len(artists) == 0 {
		return map[string]string{}, nil
	}
	var sb strings.Builder
	for _, a := range artists {
		fmt.Fprintf(&sb, "- %s (songs: %s)\n", a.Artist, strings.Join(a.Tracks, ", "))
	}
	prompt := fmt.Sprintf(`Classify these music artists into genres. The catalog has no genre data for them.

Artists to classify:
%s
Return ONLY a JSON object mapping each artist name to ONE genre.
Use simple genres: Hip Hop, R&B, Pop, Rock, Electronic, Indie, Country, Latin, Jazz, Metal, Folk, Alternative.
No other text.`, sb.String())

	out := make(map[string]string)
	if err := c.completeJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WeeklyFavorite implements Analyzer.
func (c *OpenAI) WeeklyFavorite(ctx context.Context, counts []models.PlayCount, details *models.TrackDetails) (*models.FavoriteAnalysis, error) {
	if len(counts) == 0 {
		return nil, nil
	}
	fav := counts[0]

	var detText string
	if details != nil {
		genres := strings.Join(details.ArtistGenres, ", ")
		if genres == "" {
			genres = "not categorized (indie artist)"
		}
		detText = fmt.Sprintf(`
Track info for %q:
- Duration: %.1f minutes
- Track popularity: %d/100
- Artist popularity: %d/100
- Artist genres: %s
- Album: %s
- Release date: %s
`, fav.Track, float64(details.DurationMS)/60000, details.Popularity, details.ArtistPopularity, genres, details.AlbumName, details.ReleaseDate)
	}

	var others strings.Builder
	for i, pc := range counts {
		if i == 5 {
			break
		}
		fmt.Fprintf(&others, "- %s by %s (%d plays)\n", pc.Track, pc.Artist, pc.Count)
	}

	prompt := fmt.Sprintf(`Analyze this listener's favorite song and their music taste.

Their most-played song recently: %q by %s (played %d times)
%s
Other frequently played songs:
%s
Return ONLY a JSON object with this exact structure:
{
  "mood_analysis": "<2-3 sentences about the mood of their favorite song>",
  "taste_profile": "<2-3 sentences about what this says about their taste>",
  "recommendations": [
    {"song": "<name>", "artist": "<artist>", "reason": "<specific connection to %s, max 15 words>"}
  ]
}

Recommend exactly 3 songs matching the mood and style of %q. Do not
recommend songs already in their listening history. No other text.`,
		fav.Track, fav.Artist, fav.Count, detText, others.String(), fav.Track, fav.Track)

	var out models.FavoriteAnalysis
	if err := c.completeJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	out.Favorite = fav
	out.TrackDetails = details
	if len(out.Recommendations) > 3 {
		out.Recommendations = out.Recommendations[:3]
	}
	return &out, nil
}

// TopSongs implements Analyzer.
func (c *OpenAI) TopSongs(ctx context.Context, top []models.PlayCount) (*models.TopSongsAnalysis, error) {
	if len(top) == 0 {
		return nil, nil
	}
	if len(top) > 3 {
		top = top[:3]
	}
	var sb strings.Builder
	for i, pc := range top {
		fmt.Fprintf(&sb, "%d. %q by %s (%d plays)\n", i+1, pc.Track, pc.Artist, pc.Count)
	}
	prompt := fmt.Sprintf(`Analyze why this listener loves these songs and create a playlist for them.

Their most-played songs (last 7 days):
%s
Return ONLY a JSON object with this exact structure:
{
  "song_analyses": [
    {"track": "<name>", "artist": "<artist>", "why_you_love_it": "<2 sentences on the appeal>"}
  ],
  "playlist": {
    "name": "<creative playlist name based on their taste>",
    "description": "<1 sentence describing the vibe>",
    "songs": [{"track": "<name>", "artist": "<artist>"}]
  }
}

Include one analysis per listed song. The playlist has 5 songs matching the
overall vibe, none of which are the listed songs. No other text.`, sb.String())

	var out models.TopSongsAnalysis
	if err := c.completeJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	for i := range out.SongAnalyses {
		if i < len(top) {
			out.SongAnalyses[i].PlayCount = top[i].Count
		}
	}
	return &out, nil
}

// Validate implements Analyzer.
func (c *OpenAI) Validate(ctx context.Context, snap models.LibrarySnapshot, top []models.ArtistCount) (string, error) {
	var tops []string
	for i, a := range top {
		if i == 5 {
			break
		}
		tops = append(tops, fmt.Sprintf("%s (%d)", a.Artist, a.Count))
	}
	prompt := fmt.Sprintf(`Review this music library summary for obvious issues or anomalies.

Summary:
- Total tracks: %d
- Total duration: %.1f hours
- Average song: %.2f minutes
- Unique artists: %d
- Date range: %s

Top 5 artists: %s

Respond with ONLY one of:
- "OK" if the data looks reasonable
- A brief issue description (max 10 words) if something looks wrong

Examples of issues: negative numbers, impossible dates, avg song over 60 min, 0 tracks.`,
		snap.TrackCount, snap.TotalHours, snap.AvgMinutes, snap.UniqueArtists, snap.DateRange, strings.Join(tops, ", "))

	return c.complete(ctx, prompt)
}
