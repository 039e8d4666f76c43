package ui

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"

	"agentui/chat"
)

// Pre-compiled regex patterns for better performance
var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
	ansiRegex       = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

const codeBlockBar = "┃"

func (a *AppView) updateViewportContent(gotoBottom bool) {
	conv := a.session.Conversation()
	if conv == nil {
		a.viewport.SetContent(DimStyle.Render(fmt.Sprintf("No agent selected. Press %s to choose one.", a.kb.DisplayActionKey("agent_selector"))))
		return
	}

	records := a.session.Records()
	if len(records) == 0 {
		if conv.Loading() {
			a.viewport.SetContent(DimStyle.Render("Loading history..."))
		} else {
			a.viewport.SetContent(DimStyle.Render("No messages yet. Say hello!"))
		}
		return
	}

	var content strings.Builder
	for _, rec := range records {
		content.WriteString(a.formatRecord(rec))
	}

	a.viewport.SetContent(content.String())
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

func (a *AppView) formatRecord(rec chat.MessageRecord) string {
	timestamp := DimStyle.Render("[--:--]")
	if rec.Timestamp != nil {
		timestamp = DimStyle.Render(rec.Timestamp.Local().Format("[15:04]"))
	}

	roleStyle := DimStyle
	switch rec.Origin {
	case chat.OriginUser:
		roleStyle = UserStyle
	case chat.OriginAgent:
		roleStyle = AgentStyle
	case chat.OriginSystem:
		roleStyle = SystemStyle
	case chat.OriginUnknown:
		roleStyle = UnknownStyle
	}
	role := roleStyle.Render(rec.DisplayName)

	var markers []string
	if rec.Uncertain {
		markers = append(markers, SystemStyle.Render("?"))
	}
	if rec.Optimistic {
		markers = append(markers, DimStyle.Render("…"))
	}
	if rec.SendFailed {
		markers = append(markers, DangerStyle.Render("✗ not delivered"))
	}
	header := timestamp + " " + role
	if len(markers) > 0 {
		header += " " + strings.Join(markers, " ")
	}

	body := a.renderContent(rec)

	if rec.Origin == chat.OriginUser {
		return formatUserMessage(header, body)
	}
	return fmt.Sprintf("%s\n%s\n\n", header, body)
}

func (a *AppView) renderContent(rec chat.MessageRecord) string {
	switch rec.Content.Kind() {
	case chat.ContentText:
		text, _ := rec.Content.Text()
		if rec.Origin == chat.OriginAgent {
			return a.renderMarkdown(text)
		}
		if rec.Origin == chat.OriginSystem {
			return SystemStyle.Render(strings.TrimRight(wordWrapWithIndent(text, "", a.contentWidth()), "\n"))
		}
		return strings.TrimRight(wrapLines(text, a.contentWidth()), "\n")
	case chat.ContentImage:
		return DimStyle.Render(describeImage(rec.Content))
	default:
		return DimStyle.Italic(true).Render(rec.Content.String())
	}
}

func (a *AppView) contentWidth() int {
	if a.width <= 8 {
		return 72
	}
	return a.width - 4
}

// describeImage renders an image record as a one-line placeholder.
func describeImage(c chat.Content) string {
	data, err := c.Bytes()
	if err != nil {
		return "[image: invalid base64 payload]"
	}
	mime := http.DetectContentType(data)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return fmt.Sprintf("[image: %s, %d bytes]", mime, len(data))
}

func formatUserMessage(header, content string) string {
	bar := UserStyle.Render("┃")

	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s %s\n", bar, header))
	for _, line := range strings.Split(content, "\n") {
		result.WriteString(fmt.Sprintf("%s %s\n", bar, line))
	}
	result.WriteString("\n")

	return result.String()
}

// renderMarkdown renders agent text for the terminal, memoized per width.
func (a *AppView) renderMarkdown(content string) string {
	width := a.contentWidth()
	cacheKey := fmt.Sprintf("%d\x00%s", width, content)
	if cached, ok := a.mdCache[cacheKey]; ok {
		return cached
	}

	startTime := time.Now()

	// Strip markdown link syntax [text](url) so links appear as plain URLs
	source := preprocessLinks(content)

	// Disable autolink to keep plain URLs as plain text for the terminal to detect
	customExt := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(customExt)
	r := markdown.NewRenderer(width, 0)
	doc := p.Parse([]byte(source))
	rendered := postProcessMarkdown(string(gomarkdown.Render(doc, r)), a.width)
	rendered = strings.TrimRight(rendered, "\n")

	a.log.Debug().
		Int("length", len(content)).
		Dur("elapsed", time.Since(startTime)).
		Msg("markdown rendered")

	a.mdCache[cacheKey] = rendered
	return rendered
}

func postProcessMarkdown(rendered string, width int) string {
	// 1. Inline code: blue background to red text
	rendered = fixInlineCode(rendered)

	// 2. Color plain URLs red
	rendered = fixMarkdownLinks(rendered)

	// 3. Frame code blocks with horizontal rules
	rendered = frameCodeBlocks(rendered, width)

	return rendered
}

func preprocessLinks(content string) string {
	return mdLinkRegex.ReplaceAllString(content, "$2")
}

func fixInlineCode(s string) string {
	return inlineCodeRegex.ReplaceAllString(s, "\x1b[31m$1\x1b[0m")
}

func fixMarkdownLinks(s string) string {
	redColor := "\x1b[31m"
	reset := "\x1b[0m"

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		// Code block lines keep their own highlighting
		if !strings.Contains(line, codeBlockBar) {
			lines[i] = urlRegex.ReplaceAllString(line, redColor+"$1"+reset)
		}
	}

	return strings.Join(lines, "\n")
}

func frameCodeBlocks(s string, width int) string {
	lines := strings.Split(s, "\n")
	var result []string
	inCodeBlock := false

	darkGray := "\x1b[90m"
	reset := "\x1b[0m"
	ruleWidth := width - 4
	if ruleWidth < 8 {
		ruleWidth = 8
	}

	closeBlock := func() {
		result = append(result, "", darkGray+strings.Repeat("━", ruleWidth)+reset, "")
	}

	for _, line := range lines {
		if strings.Contains(line, codeBlockBar) {
			if !inCodeBlock {
				inCodeBlock = true
				label := "[code]"
				leftLen := (ruleWidth - len(label)) / 2
				rightLen := ruleWidth - len(label) - leftLen
				border := darkGray + strings.Repeat("━", leftLen) + reset + label + darkGray + strings.Repeat("━", rightLen) + reset
				result = append(result, "", border, "")
			}
			result = append(result, stripCodeBlockPrefix(line))
			continue
		}
		if inCodeBlock {
			closeBlock()
			inCodeBlock = false
		}
		result = append(result, line)
	}
	if inCodeBlock {
		closeBlock()
	}

	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, codeBlockBar)
	if idx < 0 {
		return line
	}
	after := idx + len(codeBlockBar)
	if after < len(line) && line[after] == ' ' {
		after++
	}
	return line[after:]
}

// wrapLines wraps each line of text independently, keeping blank lines.
func wrapLines(text string, maxWidth int) string {
	var out strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			out.WriteString("\n")
			continue
		}
		out.WriteString(wordWrapWithIndent(line, "", maxWidth))
	}
	return out.String()
}

// wordWrapWithIndent wraps text to maxWidth while preserving indentation for continuation lines
func wordWrapWithIndent(text string, prefix string, maxWidth int) string {
	prefixLen := runewidth.StringWidth(stripANSI(prefix))
	availableWidth := maxWidth - prefixLen

	if availableWidth <= 0 {
		return prefix + text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return prefix
	}

	var result strings.Builder
	var currentLine strings.Builder
	currentWidth := 0
	indent := strings.Repeat(" ", prefixLen)
	isFirstLine := true

	flush := func() {
		if isFirstLine {
			result.WriteString(prefix)
			isFirstLine = false
		} else {
			result.WriteString(indent)
		}
		result.WriteString(currentLine.String())
		result.WriteString("\n")
		currentLine.Reset()
		currentWidth = 0
	}

	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)
		testWidth := currentWidth + wordWidth
		if currentWidth > 0 {
			testWidth++ // Space before word
		}

		if testWidth > availableWidth && currentWidth > 0 {
			flush()
		}

		if currentWidth > 0 {
			currentLine.WriteString(" ")
			currentWidth++
		}
		currentLine.WriteString(word)
		currentWidth += wordWidth
	}

	if currentWidth > 0 {
		flush()
	}

	return result.String()
}

// stripANSI removes ANSI escape codes for accurate length calculation
func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}
