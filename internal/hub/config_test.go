package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestModelConfigParsing(t *testing.T) {
	var mc ModelConfig
	raw := `{"architectures":["Gemma2ForCausalLM"],"model_type":"gemma2","vocab_size":256000,"torch_dtype":"float32","eos_token_id":[1,107],"pad_token_id":0}`
	if err := json.Unmarshal([]byte(raw), &mc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if mc.Architecture() != "Gemma2ForCausalLM" || mc.VocabSize != 256000 {
		t.Fatalf("unexpected: %+v", mc)
	}
	if ids := mc.EOSTokenIDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 107 {
		t.Fatalf("eos=%v", ids)
	}
	if pad, ok := mc.PadTokenID(); !ok || pad != 0 {
		t.Fatalf("pad=%d ok=%v", pad, ok)
	}
}

func TestModelConfigPadFallsBackToEOS(t *testing.T) {
	var mc ModelConfig
	if err := json.Unmarshal([]byte(`{"model_type":"gpt2","eos_token_id":50256,"pad_token_id":null}`), &mc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if mc.Architecture() != "gpt2" {
		t.Fatalf("architecture=%q", mc.Architecture())
	}
	if pad, ok := mc.PadTokenID(); !ok || pad != 50256 {
		t.Fatalf("pad=%d ok=%v", pad, ok)
	}
}

func TestTokenizerConfigSpecialTokens(t *testing.T) {
	var tc TokenizerConfig
	raw := `{"tokenizer_class":"GemmaTokenizer","eos_token":"<eos>","bos_token":{"content":"<bos>","lstrip":false},"pad_token":null}`
	if err := json.Unmarshal([]byte(raw), &tc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tc.TokenizerClass != "GemmaTokenizer" || tc.EOSToken != "<eos>" || tc.BOSToken != "<bos>" || tc.PadToken != "" {
		t.Fatalf("unexpected: %+v", tc)
	}
}

func TestLoadModelConfigFromHub(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/org/m/resolve/main/config.json":
			_, _ = w.Write([]byte(`{"architectures":["LlamaForCausalLM"],"vocab_size":32000,"torch_dtype":"bfloat16"}`))
		case "/org/m/resolve/main/tokenizer_config.json":
			_, _ = w.Write([]byte(`{"tokenizer_class":"LlamaTokenizer"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	mc, err := c.LoadModelConfig(context.Background(), "org/m", "main")
	if err != nil {
		t.Fatalf("model config: %v", err)
	}
	if mc.Architecture() != "LlamaForCausalLM" || mc.TorchDType != "bfloat16" {
		t.Fatalf("unexpected: %+v", mc)
	}
	tc, err := c.LoadTokenizerConfig(context.Background(), "org/m", "main")
	if err != nil {
		t.Fatalf("tokenizer config: %v", err)
	}
	if tc.TokenizerClass != "LlamaTokenizer" {
		t.Fatalf("unexpected: %+v", tc)
	}
}
