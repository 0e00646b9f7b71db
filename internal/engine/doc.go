// Package engine owns the loaded model and turns generation requests into
// responses. It is structured into small files by concern:
//
//   - engine.go: Engine type, constructor, Load and lifecycle getters.
//   - types.go: State, Params, Info and Snapshot.
//   - errors.go: error types and helpers (IsModelNotLoaded, IsGeneration).
//   - params.go: request defaults and the max_length cap.
//   - strip.go: removal of the echoed prompt from decoded output.
//   - generate.go: Generate and ModelInfo entry points.
//   - cache.go, cache_memory.go, cache_redis.go: optional result cache for
//     greedy requests.
//   - metrics.go: generation metrics.
//   - backend.go, loader.go: Backend/Loader interfaces and backend selection.
//
// Backends:
//
//   - remote (default): Hugging Face text-generation endpoint over HTTP.
//     Model metadata comes from the hub. File: adapter_remote.go.
//
//   - onnx: in-process ONNX Runtime with a Hugging Face tokenizer. Enabled
//     with `-tags=onnx`. Files: adapter_onnx.go and adapter_onnx_stub.go (no tag).
//
//   - llama: in-process llama.cpp over a GGUF file. Enabled with `-tags=llama`.
//     Files: adapter_llama.go, llama_cgo.go and adapter_llama_stub.go (no tag).
//
// Builds without a backend's tag still accept its name, but Load fails with a
// dependency-unavailable error, so the process refuses to start.
package engine
