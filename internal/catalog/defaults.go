package catalog

// DefaultModels returns the built-in model set exposed by the gateway.
func DefaultModels() []ModelDescriptor {
	return []ModelDescriptor{
		// ObbyLabs models (remapped onto Google upstream models)
		{
			ID:          "obbylabs:fast-chat",
			DisplayName: "Fast Chat",
			Provider:    "obbylabs",
			Description: "Quick responses for simple tasks",
			Capabilities: Capabilities{
				Text:  true,
				Image: true,
				Tools: true,
			},
		},

		// OpenAI models
		{
			ID:          "openai:gpt-4.1",
			DisplayName: "GPT-4.1",
			Provider:    "openai",
			Description: "Latest GPT-4.1 model",
			Capabilities: Capabilities{
				Text:      true,
				Image:     true,
				Tools:     true,
				Reasoning: true,
			},
		},
		{
			ID:          "openai:gpt-4.1-mini",
			DisplayName: "GPT-4.1 Mini",
			Provider:    "openai",
			Description: "Smaller version of GPT-4.1",
			Capabilities: Capabilities{
				Text:  true,
				Image: true,
				Tools: true,
			},
		},
		{
			ID:          "openai:gpt-4o",
			DisplayName: "GPT-4o",
			Provider:    "openai",
			Description: "Multimodal GPT-4o model",
			Capabilities: Capabilities{
				Text:      true,
				Image:     true,
				Tools:     true,
				Reasoning: true,
			},
		},
		{
			ID:          "openai:gpt-4o-mini",
			DisplayName: "GPT-4o Mini",
			Provider:    "openai",
			Description: "Fast and efficient GPT-4o",
			Capabilities: Capabilities{
				Text:  true,
				Image: true,
				Tools: true,
			},
		},
		{
			ID:          "openai:o3",
			DisplayName: "o3",
			Provider:    "openai",
			Description: "Advanced reasoning model",
			Capabilities: Capabilities{
				Text:      true,
				Image:     true,
				Tools:     true,
				Reasoning: true,
			},
		},
		{
			ID:          "openai:o4-mini",
			DisplayName: "o4 Mini",
			Provider:    "openai",
			Description: "Compact reasoning model",
			Capabilities: Capabilities{
				Text:      true,
				Tools:     true,
				Reasoning: true,
			},
		},

		// Anthropic models
		{
			ID:          "anthropic:claude-sonnet-4",
			DisplayName: "Claude Sonnet 4",
			Provider:    "anthropic",
			Description: "Most capable Claude model",
			Capabilities: Capabilities{
				Text:      true,
				Image:     true,
				Tools:     true,
				Reasoning: true,
			},
		},
		{
			ID:          "anthropic:claude-3.7-sonnet",
			DisplayName: "Claude 3.7 Sonnet",
			Provider:    "anthropic",
			Description: "Advanced Claude 3.7 model",
			Capabilities: Capabilities{
				Text:      true,
				Image:     true,
				Tools:     true,
				Reasoning: true,
			},
		},

		// Google models
		{
			ID:          "google:gemini-2.5-pro",
			DisplayName: "Gemini 2.5 Pro",
			Provider:    "google",
			Description: "Advanced Gemini model",
			Capabilities: Capabilities{
				Text:      true,
				Image:     true,
				Tools:     true,
				Reasoning: true,
			},
		},
		{
			ID:          "google:gemini-2.5-flash",
			DisplayName: "Gemini 2.5 Flash",
			Provider:    "google",
			Description: "Fast Gemini model",
			Capabilities: Capabilities{
				Text:  true,
				Image: true,
				Tools: true,
			},
		},
		{
			ID:          "google:gemini-2.0-flash",
			DisplayName: "Gemini 2.0 Flash",
			Provider:    "google",
			Description: "Stable Gemini 2.0 model",
			Capabilities: Capabilities{
				Text:      true,
				Image:     true,
				Tools:     true,
				Reasoning: true,
			},
		},
	}
}

// DefaultAliases returns the built-in alias table. Every target must exist in
// DefaultModels; NewAliasTable enforces that at startup.
func DefaultAliases() map[string]string {
	return map[string]string{
		"fast-chat": "obbylabs:fast-chat",
		"gpt":       "openai:gpt-4.1",
		"gpt-4o":    "openai:gpt-4o",
		"claude":    "anthropic:claude-sonnet-4",
		"gemini":    "google:gemini-2.5-pro",
		"flash":     "google:gemini-2.5-flash",
	}
}
