package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"CHUNK_SIZE", "CHUNK_OVERLAP", "RAG_TOP_K", "EMBEDDING_VERSION", "EMBEDDING_DIM", "DEFAULT_COUNTRY_CODE", "LLM_MAX_CONCURRENT", "USER_RATE_LIMIT", "USER_RATE_WINDOW_SECONDS", "CONVERSATION_CACHE_SIZE", "CONVERSATION_MAX_MESSAGES", "CONVERSATION_CONTEXT_MESSAGES", "LLM_PROVIDER", "STORAGE_BACKEND", "RETRY_INITIAL_BACKOFF_MS", "RETRY_MAX_BACKOFF_MS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ChunkSize != 2000 || cfg.ChunkOverlap != 300 {
		t.Fatalf("unexpected chunking defaults %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.RAGTopK != 10 || cfg.EmbeddingVersion != "v2.1" || cfg.EmbeddingDim != 1536 {
		t.Fatalf("unexpected retrieval defaults %+v", cfg)
	}
	if cfg.DefaultCountryCode != "IN" || cfg.LLMMaxConcurrent != 4 {
		t.Fatalf("unexpected defaults country=%q llm=%d", cfg.DefaultCountryCode, cfg.LLMMaxConcurrent)
	}
	if cfg.UserRateLimit != 10 || cfg.UserRateWindowSeconds != 60 {
		t.Fatalf("unexpected rate limit defaults %d/%d", cfg.UserRateLimit, cfg.UserRateWindowSeconds)
	}
	if cfg.ConversationCacheSize != 1000 || cfg.ConversationMaxMessages != 10 || cfg.ConversationContextMsgs != 4 {
		t.Fatalf("unexpected conversation defaults %+v", cfg)
	}
	if cfg.RetryInitialBackoffMS != 1000 || cfg.RetryMaxBackoffMS != 8000 {
		t.Fatalf("unexpected retry defaults %d/%d", cfg.RetryInitialBackoffMS, cfg.RetryMaxBackoffMS)
	}
	if cfg.LLMProvider != "openai" || cfg.StorageBackend != "local" {
		t.Fatalf("unexpected backends %q/%q", cfg.LLMProvider, cfg.StorageBackend)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	t.Setenv("LOG_TO_CONSOLE", "true")
	t.Setenv("LLM_PROVIDER", "Ollama")
	t.Setenv("DEFAULT_COUNTRY_CODE", "us")

	cfg := Load()
	if cfg.ChunkSize != 500 || cfg.LLMTemperature != 0.7 || !cfg.LogToConsole {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.LLMProvider != "ollama" || cfg.DefaultCountryCode != "US" {
		t.Fatalf("expected normalized values, got %q/%q", cfg.LLMProvider, cfg.DefaultCountryCode)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RAG_TOP_K", "ten")
	t.Setenv("USE_RAG", "maybe")

	cfg := Load()
	if cfg.RAGTopK != 10 || !cfg.UseRAG {
		t.Fatalf("expected fallbacks, got top_k=%d use_rag=%v", cfg.RAGTopK, cfg.UseRAG)
	}
}
