// Package prompts renders the classifier and generation prompts from embedded
// Go templates through the eino prompt component, so prompt callbacks fire.
package prompts

import (
	"context"
	"embed"
	"fmt"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/*.txt
var templateFS embed.FS

// Name identifies a prompt pair.
type Name string

const (
	Intent         Name = "intent"
	Diet           Name = "diet"
	Price          Name = "price"
	FinanceTicker  Name = "finance_ticker"
	FinanceGeneral Name = "finance_general"
	General        Name = "general"
)

type pair struct {
	system string
	user   string
}

var pairs = map[Name]pair{
	Intent:         {system: "intent_system.txt", user: "intent_user.txt"},
	Diet:           {system: "diet_system.txt", user: "diet_user.txt"},
	Price:          {system: "price_system.txt", user: "price_user.txt"},
	FinanceTicker:  {system: "finance_ticker_system.txt", user: "finance_ticker_user.txt"},
	FinanceGeneral: {system: "finance_general_system.txt", user: "question_user.txt"},
	General:        {system: "general_system.txt", user: "question_user.txt"},
}

var templates = mustLoad()

func mustLoad() map[Name]prompt.ChatTemplate {
	out := make(map[Name]prompt.ChatTemplate, len(pairs))
	for name, p := range pairs {
		sys, err := templateFS.ReadFile("template/" + p.system)
		if err != nil {
			panic(fmt.Sprintf("prompt %s: %v", name, err))
		}
		usr, err := templateFS.ReadFile("template/" + p.user)
		if err != nil {
			panic(fmt.Sprintf("prompt %s: %v", name, err))
		}
		out[name] = prompt.FromMessages(
			schema.GoTemplate,
			schema.SystemMessage(string(sys)),
			schema.UserMessage(string(usr)),
		)
	}
	return out
}

// Render formats the named prompt with vars into a system and a user message.
func Render(ctx context.Context, name Name, vars map[string]any) ([]*schema.Message, error) {
	tpl, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt %q", name)
	}
	ctx = einocb.ReuseHandlers(ctx, &einocb.RunInfo{
		Name:      string(name),
		Type:      "GoTemplate",
		Component: components.ComponentOfPrompt,
	})
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs, nil
}

// RenderIntent renders the classifier prompt.
func RenderIntent(ctx context.Context, query, locale string) ([]*schema.Message, error) {
	if locale == "" {
		locale = "en-IN"
	}
	return Render(ctx, Intent, map[string]any{"Query": query, "Locale": locale})
}
