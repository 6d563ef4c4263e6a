package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/anthropic"
	"github.com/fwojciec/edabot/config"
	"github.com/fwojciec/edabot/gemini"
	"github.com/fwojciec/edabot/openai"
)

// apiKeys holds provider keys read from the environment in main.
type apiKeys struct {
	Anthropic string
	Gemini    string
	OpenAI    string
}

func (k apiKeys) forProvider(name string) string {
	switch name {
	case "anthropic":
		return k.Anthropic
	case "gemini":
		return k.Gemini
	case "openai":
		return k.OpenAI
	}
	return ""
}

var keyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// resolveProvider selects and constructs the provider. The configured key
// overrides the environment; with no provider configured, exactly one
// environment key must be present.
func resolveProvider(ctx context.Context, llm config.LLM, keys apiKeys) (edabot.Provider, error) {
	name := llm.Provider
	if name == "" {
		var found []string
		for _, p := range config.Providers {
			if keys.forProvider(p) != "" {
				found = append(found, p)
			}
		}
		switch len(found) {
		case 0:
			return nil, fmt.Errorf("no API key found: set ANTHROPIC_API_KEY, GEMINI_API_KEY or OPENAI_API_KEY (or llm.provider and llm.api_key)")
		case 1:
			name = found[0]
		default:
			return nil, fmt.Errorf("multiple API keys found (%s): set llm.provider or EDABOT_PROVIDER to select", strings.Join(found, ", "))
		}
	}

	key := llm.APIKey
	if key == "" {
		key = keys.forProvider(name)
	}

	switch name {
	case "anthropic":
		if key == "" {
			return nil, fmt.Errorf("%s not set", keyEnv[name])
		}
		var opts []anthropic.Option
		if llm.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(llm.BaseURL))
		}
		return anthropic.New(key, opts...), nil
	case "gemini":
		if key == "" {
			return nil, fmt.Errorf("%s not set", keyEnv[name])
		}
		var opts []gemini.Option
		if llm.Model != "" {
			opts = append(opts, gemini.WithModel(llm.Model))
		}
		return gemini.New(ctx, key, opts...)
	case "openai":
		if key == "" {
			return nil, fmt.Errorf("%s not set", keyEnv[name])
		}
		var opts []openai.Option
		if llm.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llm.BaseURL))
		}
		if llm.Model != "" {
			opts = append(opts, openai.WithModel(llm.Model))
		}
		return openai.New(ctx, key, opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q: must be one of %s", name, strings.Join(config.Providers, ", "))
	}
}
