package ui

import (
	"fmt"
	"regexp"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"velo/model"
)

var mdLinkRegex = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)

func (a *AppView) updateViewportContent(gotoBottom bool) {
	messages := a.orchestrator.Messages()
	if len(messages) == 0 {
		a.viewport.SetContent(DimStyle.Render("No messages yet. Ask about your database to get started."))
		return
	}

	var content strings.Builder
	for i, msg := range messages {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(a.renderMessage(&msg))
	}

	a.viewport.SetContent(content.String())
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

func (a *AppView) renderMessage(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return UserStyle.Render("You") + "\n" + msg.Content + "\n"
	case model.RoleAssistant:
		return AssistantStyle.Render("Velo") + "\n" + a.renderAssistantParts(msg)
	default:
		return DimStyle.Render(msg.Content) + "\n"
	}
}

// renderAssistantParts renders reasoning first, then tool invocations and
// text in part order.
func (a *AppView) renderAssistantParts(msg *model.Message) string {
	var out strings.Builder

	if p := msg.ReasoningPart(); p != nil && p.Text != "" {
		out.WriteString(ReasoningStyle.Render(strings.TrimRight(p.Text, "\n")))
		out.WriteString("\n\n")
	}

	for i := range msg.Parts {
		p := &msg.Parts[i]
		switch p.Kind {
		case model.PartReasoning:
			// already rendered above
		case model.PartToolInvocation:
			out.WriteString(a.renderToolInvocation(p))
			out.WriteString("\n")
		case model.PartText:
			if p.Text != "" {
				out.WriteString(a.renderMarkdown(p.Text))
				out.WriteString("\n")
			}
		}
	}

	if out.Len() == 0 {
		return DimStyle.Render("...") + "\n"
	}
	return out.String()
}

func (a *AppView) renderToolInvocation(p *model.Part) string {
	label := p.ToolName
	if sql, ok := p.Args["sql"].(string); ok && sql != "" {
		label = fmt.Sprintf("%s: %s", p.ToolName, truncateSQL(sql, a.width-12))
	}

	switch p.Status {
	case model.ToolPending:
		return ToolPendingStyle.Render("  ○ " + label)
	case model.ToolExecuting:
		return ToolExecutingStyle.Render("  ◐ " + label)
	case model.ToolSuccess:
		return ToolSuccessStyle.Render("  ● " + label)
	case model.ToolError:
		return ToolErrorStyle.Render("  ✗ " + label + " (" + p.Error + ")")
	default:
		return ToolPendingStyle.Render("  ○ " + label)
	}
}

func truncateSQL(sql string, maxLen int) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if maxLen > 3 && len(sql) > maxLen {
		return sql[:maxLen-3] + "..."
	}
	return sql
}

// renderMarkdown renders assistant text with go-term-markdown. Autolink
// is disabled so plain URLs stay plain and the terminal emulator handles
// click detection.
func (a *AppView) renderMarkdown(content string) string {
	content = preprocessLinks(content)

	width := a.width - 4
	if width < 20 {
		width = 20
	}

	customExt := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(customExt)
	r := markdown.NewRenderer(width, 0)
	doc := p.Parse([]byte(content))
	rendered := gomarkdown.Render(doc, r)

	return strings.TrimRight(string(rendered), "\n") + "\n"
}

// preprocessLinks strips markdown link syntax [text](url) down to the
// bare URL.
func preprocessLinks(content string) string {
	return mdLinkRegex.ReplaceAllString(content, "$2")
}
