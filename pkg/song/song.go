package song

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// VariantType identifies one of the two twin slots of a result.
type VariantType string

const (
	A VariantType = "A"
	B VariantType = "B"
)

// ParseVariantType parses a variant slot name, case insensitive.
func ParseVariantType(s string) (VariantType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return A, nil
	case "B":
		return B, nil
	default:
		return "", fmt.Errorf("song: unknown variant %q", s)
	}
}

// Default values used when the upstream payload leaves a field out.
const (
	DefaultTitle = "无题"
	DefaultStyle = "流行"
	DefaultMood  = "平静"

	DefaultLabelA      = "版本 A (经典)"
	DefaultLabelB      = "版本 B (进阶)"
	DefaultLyrics      = "生成失败..."
	DefaultSunoPromptA = "Pop music"
	DefaultSunoPromptB = "Alternative pop"

	defaultCoverSeed = "music"
)

type Variant struct {
	Type       VariantType `json:"type"`
	Label      string      `json:"label"`
	Lyrics     string      `json:"lyrics"`
	SunoPrompt string      `json:"sunoPrompt"`
}

// Result is a normalized generation. It always holds exactly two variants,
// A first and B second.
type Result struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Style     string     `json:"style"`
	Mood      string     `json:"mood"`
	Cover     string     `json:"coverImage"`
	CreatedAt time.Time  `json:"createdAt"`
	Variants  [2]Variant `json:"variants"`
}

// Variant returns the variant stored in the given slot.
func (r *Result) Variant(t VariantType) (Variant, bool) {
	for _, v := range r.Variants {
		if v.Type == t {
			return v, true
		}
	}
	return Variant{}, false
}

// Payload is the raw structured response of the generation engine. Every field
// is optional.
type Payload struct {
	Title    *string         `json:"title,omitempty"`
	Style    *string         `json:"style,omitempty"`
	Mood     *string         `json:"mood,omitempty"`
	VersionA *VariantPayload `json:"versionA,omitempty"`
	VersionB *VariantPayload `json:"versionB,omitempty"`
}

type VariantPayload struct {
	Label      *string `json:"label,omitempty"`
	Lyrics     *string `json:"lyrics,omitempty"`
	SunoPrompt *string `json:"sunoPrompt,omitempty"`
}

// Empty reports whether the payload carries none of the song fields.
func (p *Payload) Empty() bool {
	if p == nil {
		return true
	}
	return p.Title == nil && p.Style == nil && p.Mood == nil && p.VersionA == nil && p.VersionB == nil
}

// ParsePayload decodes an engine response. An empty body decodes to an empty
// payload.
func ParsePayload(b []byte) (*Payload, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return &Payload{}, nil
	}
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("song: couldn't unmarshal payload: %w", err)
	}
	return &p, nil
}

// Normalize converts a payload into a fully populated result. Missing or empty
// fields are replaced with fixed defaults.
func Normalize(p *Payload, id string, now time.Time) *Result {
	if p == nil {
		p = &Payload{}
	}
	a := p.VersionA
	if a == nil {
		a = &VariantPayload{}
	}
	b := p.VersionB
	if b == nil {
		b = &VariantPayload{}
	}
	return &Result{
		ID:        id,
		Title:     or(p.Title, DefaultTitle),
		Style:     or(p.Style, DefaultStyle),
		Mood:      or(p.Mood, DefaultMood),
		Cover:     CoverURL(or(p.Title, defaultCoverSeed)),
		CreatedAt: now,
		Variants: [2]Variant{
			{
				Type:       A,
				Label:      or(a.Label, DefaultLabelA),
				Lyrics:     or(a.Lyrics, DefaultLyrics),
				SunoPrompt: or(a.SunoPrompt, DefaultSunoPromptA),
			},
			{
				Type:       B,
				Label:      or(b.Label, DefaultLabelB),
				Lyrics:     or(b.Lyrics, DefaultLyrics),
				SunoPrompt: or(b.SunoPrompt, DefaultSunoPromptB),
			},
		},
	}
}

// CoverURL returns a placeholder cover image seeded by the given text, so the
// same text always maps to the same image.
func CoverURL(seed string) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s/400/400", url.PathEscape(seed))
}

// RefineTemplate builds the request text used to iterate over a variant.
func RefineTemplate(v Variant) string {
	return fmt.Sprintf("【请修改这段歌词】\n原歌词内容：\n%s\n\n原提示词：\n%s\n\n请在下方输入您的修改意见：", v.Lyrics, v.SunoPrompt)
}

func or(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
