package cards

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ID identifies a single card within a game's ordered pack list.
// Pack is the game-local pack ordinal, not a global identifier.
type ID struct {
	Pack int `json:"pack_number"`
	Card int `json:"card_number"`
}

// Prompt is a black card: the fill-in text and how many responses it demands.
type Prompt struct {
	Text string `json:"text"`
	Pick int    `json:"pick"`
}

// Pack is an immutable named set of prompt and response cards.
type Pack struct {
	Name      string
	Official  bool
	Prompts   []Prompt
	Responses []string
}

// rawResponse is the on-disk shape of a white card.
type rawResponse struct {
	Text string `json:"text"`
}

// packJSON is the historical disk format: "white" holds responses,
// "black" holds prompts. The keys must be preserved as-is.
type packJSON struct {
	Name      string        `json:"name"`
	Official  bool          `json:"official"`
	Responses responseList  `json:"white"`
	Prompts   []Prompt      `json:"black"`
}

// responseList accepts both white-card forms found in pack files:
// {"text": "..."} objects and bare strings.
type responseList []string

func (r *responseList) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var raw rawResponse
		if err := json.Unmarshal(item, &raw); err != nil {
			return fmt.Errorf("response %d: %w", i, err)
		}
		out = append(out, raw.Text)
	}
	*r = out
	return nil
}

func (r responseList) MarshalJSON() ([]byte, error) {
	out := make([]rawResponse, len(r))
	for i, text := range r {
		out[i] = rawResponse{Text: text}
	}
	return json.Marshal(out)
}

func (p Pack) MarshalJSON() ([]byte, error) {
	return json.Marshal(packJSON{
		Name:      p.Name,
		Official:  p.Official,
		Responses: responseList(p.Responses),
		Prompts:   p.Prompts,
	})
}

func (p *Pack) UnmarshalJSON(data []byte) error {
	var raw packJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Name = raw.Name
	p.Official = raw.Official
	p.Responses = raw.Responses
	p.Prompts = raw.Prompts
	return nil
}

// Validate checks the structural constraints a pack must satisfy before
// it can be dealt from.
func (p *Pack) Validate() error {
	if p.Name == "" {
		return errors.New("pack has no name")
	}
	if len(p.Prompts) == 0 {
		return errors.New("pack has no prompts")
	}
	if len(p.Responses) == 0 {
		return errors.New("pack has no responses")
	}
	for i, prompt := range p.Prompts {
		if prompt.Pick < 1 || prompt.Pick > 3 {
			return fmt.Errorf("prompt %d: pick %d out of range [1,3]", i, prompt.Pick)
		}
	}
	return nil
}
