package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Standard file names in a transformers model repository.
const (
	ConfigFile          = "config.json"
	TokenizerFile       = "tokenizer.json"
	TokenizerConfigFile = "tokenizer_config.json"
)

// ModelConfig is the subset of config.json the service reports or needs.
type ModelConfig struct {
	Architectures         []string        `json:"architectures"`
	ModelType             string          `json:"model_type"`
	VocabSize             int             `json:"vocab_size"`
	TorchDType            string          `json:"torch_dtype"`
	MaxPositionEmbeddings int             `json:"max_position_embeddings"`
	RawEOS                json.RawMessage `json:"eos_token_id"`
	RawPad                json.RawMessage `json:"pad_token_id"`
}

// Architecture returns the first declared architecture, falling back to model_type.
func (m ModelConfig) Architecture() string {
	if len(m.Architectures) > 0 && m.Architectures[0] != "" {
		return m.Architectures[0]
	}
	return m.ModelType
}

// EOSTokenIDs returns eos_token_id, which may be an int or a list of ints.
func (m ModelConfig) EOSTokenIDs() []int { return tokenIDs(m.RawEOS) }

// PadTokenID returns pad_token_id, or the first EOS id when unset, mirroring
// how causal LMs without a pad token are configured for generation.
func (m ModelConfig) PadTokenID() (int, bool) {
	if ids := tokenIDs(m.RawPad); len(ids) > 0 {
		return ids[0], true
	}
	if ids := m.EOSTokenIDs(); len(ids) > 0 {
		return ids[0], true
	}
	return 0, false
}

func tokenIDs(raw json.RawMessage) []int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var one int
	if err := json.Unmarshal(raw, &one); err == nil {
		return []int{one}
	}
	var many []int
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// TokenizerConfig is the subset of tokenizer_config.json the service reports.
type TokenizerConfig struct {
	TokenizerClass string       `json:"tokenizer_class"`
	EOSToken       SpecialToken `json:"eos_token"`
	PadToken       SpecialToken `json:"pad_token"`
	BOSToken       SpecialToken `json:"bos_token"`
	ModelMaxLength float64      `json:"model_max_length"`
}

// SpecialToken decodes either a bare string or an AddedToken object.
type SpecialToken string

func (t *SpecialToken) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = SpecialToken(s)
		return nil
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("special token: %w", err)
	}
	*t = SpecialToken(obj.Content)
	return nil
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// LoadModelConfig fetches and parses config.json of repo@revision.
func (c *Client) LoadModelConfig(ctx context.Context, repo, revision string) (ModelConfig, error) {
	var mc ModelConfig
	p, err := c.Fetch(ctx, repo, revision, ConfigFile)
	if err != nil {
		return mc, err
	}
	err = ReadJSON(p, &mc)
	return mc, err
}

// LoadTokenizerConfig fetches and parses tokenizer_config.json of repo@revision.
func (c *Client) LoadTokenizerConfig(ctx context.Context, repo, revision string) (TokenizerConfig, error) {
	var tc TokenizerConfig
	p, err := c.Fetch(ctx, repo, revision, TokenizerConfigFile)
	if err != nil {
		return tc, err
	}
	err = ReadJSON(p, &tc)
	return tc, err
}
