// Package huggingface talks to Hugging Face hosted models. Transport is the
// shared HTTP layer used by every outbound Hugging Face call, including the
// Gradio Space client: it adds the bearer token, waits on a shared token
// bucket and retries transient failures with exponential backoff. Client
// wraps the inference router for image generation and speech recognition.
package huggingface
