package providers

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloudgovern/policyaudit/internal/services"
)

// Advisor produces an optional narrative summary of a finished assessment.
// It never feeds back into classification: scores and recommendations stay
// deterministic with or without it.
type Advisor struct {
	client *openai.Client
}

// NewAdvisor creates an advisor, or nil when no API key is configured.
func NewAdvisor(apiKey string) *Advisor {
	if apiKey == "" {
		return nil
	}
	return &Advisor{client: openai.NewClient(apiKey)}
}

// Summarize asks for a short narrative over the run's headline numbers and
// returns the fallback text on any failure.
func (a *Advisor) Summarize(ctx context.Context, result *services.AssessmentResult, fallback string) string {
	if a == nil {
		return fallback
	}

	summary := result.Snapshot.Summary
	prompt := fmt.Sprintf(
		"Summarize this cloud policy assessment in three sentences for a platform team: "+
			"%d assignments (%d enforced, %d report-only), %d high risk, %d non-compliant resources, "+
			"baseline coverage %d%% (%d%% enforced).",
		summary.TotalAssignments, summary.EnforcedCount, summary.NotEnforcedCount,
		summary.HighRiskCount, summary.NonCompliantResources,
		result.Coverage.CoveragePercent, result.Coverage.EnforcedCoveragePercent,
	)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
		MaxTokens: 300,
	})
	if err != nil || len(resp.Choices) == 0 {
		return fallback
	}
	return resp.Choices[0].Message.Content
}
