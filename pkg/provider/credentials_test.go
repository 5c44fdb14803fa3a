package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestCredentialFromEnv_Missing(t *testing.T) {
	t.Setenv("LLMPROBE_TEST_KEY", "")

	_, err := CredentialFromEnv("LLMPROBE_TEST_KEY", "", "https://example.com/v1")
	if err == nil {
		t.Fatal("expected error for unset variable")
	}
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
	if !strings.Contains(err.Error(), "LLMPROBE_TEST_KEY") {
		t.Errorf("error should name the variable, got %q", err.Error())
	}
}

func TestCredentialFromEnv_DefaultBase(t *testing.T) {
	t.Setenv("LLMPROBE_TEST_KEY", "sk-test")
	t.Setenv("LLMPROBE_TEST_BASE", "")

	cred, err := CredentialFromEnv("LLMPROBE_TEST_KEY", "LLMPROBE_TEST_BASE", "https://example.com/v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want %q", cred.APIKey, "sk-test")
	}
	if cred.BaseURL != "https://example.com/v1" {
		t.Errorf("BaseURL = %q, want default", cred.BaseURL)
	}
}

func TestCredentialFromEnv_BaseOverride(t *testing.T) {
	t.Setenv("LLMPROBE_TEST_KEY", "  sk-test  ")
	t.Setenv("LLMPROBE_TEST_BASE", "http://localhost:8999")

	cred, err := CredentialFromEnv("LLMPROBE_TEST_KEY", "LLMPROBE_TEST_BASE", "https://example.com/v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want trimmed %q", cred.APIKey, "sk-test")
	}
	if cred.BaseURL != "http://localhost:8999" {
		t.Errorf("BaseURL = %q, want override", cred.BaseURL)
	}
}
