package assistant

import (
	"context"

	"github.com/kavya5cloud/studyroom/internal/assistant"
	"github.com/kavya5cloud/studyroom/internal/config"
	"github.com/samber/do/v2"
	"google.golang.org/genai"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (assistant.Completer, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.GeminiAPIKey != "" {
			return NewGemini(context.Background(), &genai.ClientConfig{
				APIKey:  c.GeminiAPIKey,
				Backend: genai.BackendGeminiAPI,
			}, c.GeminiModel, c.AssistantTimeout())
		}
		return NewHTTPFunction(c.AssistantFunctionURL, c.AssistantTimeout()), nil
	})
}
