package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"auto_linkedin_post_publisher/approval"
	"auto_linkedin_post_publisher/config"
	"auto_linkedin_post_publisher/generator"
)

func TestBuildLLMProviders(t *testing.T) {
	_, err := buildLLM(config.Config{})
	require.Error(t, err)

	llm, err := buildLLM(config.Config{LLM: &config.LLMConfig{Provider: "mock"}})
	require.NoError(t, err)
	require.IsType(t, generator.MockLLM{}, llm)

	_, err = buildLLM(config.Config{LLM: &config.LLMConfig{Provider: "deepseek", Model: "deepseek-chat", APIKey: "k"}})
	require.ErrorContains(t, err, "base_url")

	llm, err = buildLLM(config.Config{LLM: &config.LLMConfig{Provider: "perplexity", Model: "sonar", APIKey: "k"}})
	require.NoError(t, err)
	require.IsType(t, &generator.OpenAILLM{}, llm)

	_, err = buildLLM(config.Config{LLM: &config.LLMConfig{Provider: "claude"}})
	require.ErrorContains(t, err, "not supported")
}

func TestSignCommandIssuesVerifiableLink(t *testing.T) {
	t.Setenv("APPROVAL_SECRET", "")
	t.Setenv("PUBLIC_BASE_URL", "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("public_base_url: https://brand.example\napproval:\n  secret: s3cret\n"), 0o600))
	textPath := filepath.Join(dir, "post.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("Hand-written post.\n\n#Focus"), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfgPath, "sign", "--text-file", textPath, "--image", "https://i.example/a.jpg", "--topic", "Focus"})
	require.NoError(t, rootCmd.Execute())

	link := strings.TrimSpace(out.String())
	require.True(t, strings.HasPrefix(link, "https://brand.example/approve?"), link)
	token, sig, err := approval.ParseURL(link)
	require.NoError(t, err)
	signer, err := approval.NewSigner("s3cret")
	require.NoError(t, err)
	p, err := signer.Open(token, sig)
	require.NoError(t, err)
	require.Equal(t, approval.Payload{Topic: "Focus", Text: "Hand-written post.\n\n#Focus", Image: "https://i.example/a.jpg"}, p)
}
