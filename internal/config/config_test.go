package config

import "testing"

func validConfig() Config {
	return Config{
		AppEnv:                   "production",
		OpenAIAPIKey:             "sk-test",
		OpenAIBaseURL:            "https://api.openai.com/v1",
		ChatTimeoutSeconds:       8,
		ClassifierTimeoutSeconds: 5,
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRequiresAPIKeyOutsideLocal(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.OpenAIAPIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing API key must fail outside local env")
	}

	cfg.AppEnv = "local"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("local env should allow an empty key: %v", err)
	}
}

func TestValidateRequiresBaseURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.OpenAIBaseURL = " "
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty base URL must fail")
	}
}

func TestValidateRejectsNonPositiveTimeouts(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.ChatTimeoutSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero chat timeout must fail")
	}

	cfg = validConfig()
	cfg.ClassifierTimeoutSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative classifier timeout must fail")
	}
}
