// Package ai provides factory functions for building the model
// gateway from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/relink-cli/internal/adapters/driven/gateway"
	"github.com/custodia-labs/relink-cli/internal/adapters/driven/gateway/anthropic"
	"github.com/custodia-labs/relink-cli/internal/adapters/driven/gateway/ollama"
	"github.com/custodia-labs/relink-cli/internal/adapters/driven/gateway/openai"
	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateGateway builds a gateway from settings and
// verifies connectivity before handing it out.
func CreateAndValidateGateway(settings domain.GatewaySettings) (driven.ModelGateway, error) {
	gw, err := CreateGateway(settings)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := gw.Ping(ctx); err != nil {
		gw.Close()
		return nil, fmt.Errorf("%w: %w. Run 'relink config' to fix",
			domain.ErrGatewayUnavailable, err)
	}
	return gw, nil
}

// CreateGateway builds a gateway from settings without validating
// connectivity.
func CreateGateway(settings domain.GatewaySettings) (driven.ModelGateway, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: no provider configured", domain.ErrGatewayUnavailable)
	}

	chat, err := createChatClient(settings)
	if err != nil {
		return nil, err
	}

	embed, err := createEmbedClient(settings)
	if err != nil {
		chat.Close()
		return nil, err
	}

	return gateway.New(chat, embed), nil
}

// ValidateGatewayConfig builds a throwaway gateway and pings it. Used
// by the config command to validate credentials on entry.
func ValidateGatewayConfig(settings domain.GatewaySettings) error {
	gw, err := CreateGateway(settings)
	if err != nil {
		return err
	}
	defer gw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return gw.Ping(ctx)
}

// createChatClient builds the scoring/tagging client.
func createChatClient(settings domain.GatewaySettings) (gateway.ChatClient, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollama.NewClient(ollama.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropic.NewClient(anthropic.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported provider: %s", settings.Provider)
	}
}

// createEmbedClient builds the embedding client, which may be a
// different vendor from the chat client. Returns nil (no error) when
// the resolved provider cannot embed, leaving the gateway to report
// domain.ErrEmbeddingUnsupported at call time.
func createEmbedClient(settings domain.GatewaySettings) (gateway.EmbedClient, error) {
	provider := settings.EmbedProvider()
	if !provider.SupportsEmbedding() {
		return nil, nil
	}

	switch provider {
	case domain.AIProviderOllama:
		return ollama.NewClient(ollama.Config{
			BaseURL:        settings.BaseURL,
			EmbeddingModel: settings.EmbeddingModel,
			Timeout:        gateway.DefaultEmbedTimeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:         settings.APIKey,
			BaseURL:        settings.BaseURL,
			EmbeddingModel: settings.EmbeddingModel,
			Timeout:        gateway.DefaultEmbedTimeout,
		})

	default:
		return nil, nil
	}
}
