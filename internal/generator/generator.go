package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/jobdesk/internal/sheet"
)

// Generator turns requisitions into fiches and fiches into outreach emails.
type Generator struct {
	completer Completer
}

// New returns a Generator using c for completions.
func New(c Completer) *Generator {
	return &Generator{completer: c}
}

// Fiche generates the job description for req following userPrompt.
func (g *Generator) Fiche(ctx context.Context, userPrompt string, req sheet.Requisition) (string, error) {
	out, err := g.completer.Complete(ctx, SystemPersona, BuildPrompt(userPrompt, req))
	if err != nil {
		return "", err
	}
	content := Clean(out, userPrompt)
	if content == "" {
		return "", fmt.Errorf("line %d: %w", req.Line, ErrEmptyCompletion)
	}
	return content, nil
}

// Outreach drafts a candidate outreach email for a generated fiche.
func (g *Generator) Outreach(ctx context.Context, title, fiche string) (string, error) {
	if strings.TrimSpace(fiche) == "" {
		return "", fmt.Errorf("outreach: fiche content is empty")
	}
	out, err := g.completer.Complete(ctx, SystemPersona, outreachPrompt(title, fiche))
	if err != nil {
		return "", err
	}
	content := Clean(out, "")
	if content == "" {
		return "", fmt.Errorf("outreach: %w", ErrEmptyCompletion)
	}
	return content, nil
}
