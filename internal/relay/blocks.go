package relay

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/slack-go/slack"

	"github.com/hackclub/stonepheus/internal/domain"
)

const (
	resolvedEmoji = "stonepheus-resolved"

	anonymousUsername = "Stonepheus"

	newTicketPretext = "_:magic_wand: you carefully whisper your query, and as you finish, " +
		":zap: a great flash of light :zap:! and in front of you, a magical portal opened, " +
		"from which a distant voice from the realm of stonemasons :siege-castle::_"

	aiTicketPretext = "_:magic_wand: as you anxiously await a stonemason, you see the bright light again! " +
		"this time, a robotic voice speaks to you..._\n" +
		"_NOTE: please do not trust the AI response. it might be inaccurate._"

	aiAnswerPretext = "_:magic_wand: as you whisper your query into the magic portal, " +
		"it turned bright, and a voice responds to you..._"

	aiRefusalPretext = "_:magic_wand: as you whisper your query into the magic portal, " +
		"it turned misty, as if the higher being is confused about your question..._"

	faqFoundPretext = "_:magic_wand: as you ask the librarian automaton, it raises a hand " +
		"towards a distant bookshelf, and a volume makes its way to you..._"

	faqNotFoundText = "the section you asked for was not found... :("

	closedThreadText = "_the portal here has long closed..._ this ticket is already resolved! " +
		"please open a new thread for further questions."

	aiDisabledText   = "sorry, but ai isn't enabled right now :("
	aiNoQuestionText = "_b... but you didn't give me a question to answer!_"
	faqNoSectionText = "_b... but you didn't give me a section to search for!_"
	unknownCmdText   = "invalid command...?"
)

var titleMarkup = regexp.MustCompile(`[*<>|]`)

func archiveURL(workspaceURL, channel, ts string) string {
	return fmt.Sprintf("%s/archives/%s/%s", workspaceURL, channel, ts)
}

func docsURL(workspaceURL, teamID, fileID string) string {
	return fmt.Sprintf("%s/docs/%s/%s", workspaceURL, teamID, fileID)
}

func resolutionNotice(actor string) string {
	return fmt.Sprintf(
		"_:magic_wand: as <@%s> waves a hand, the portal dismisses, and the connection "+
			"with the stonemason realm is broken..._\n"+
			":yay: ticket marked as resolved by <@%s>! if you have any further question "+
			"please send it in a separate thread. stonemasons won't receive updates for "+
			"messages here anymore!",
		actor, actor)
}

// messageBlocks renders relayed message text plus a context line linking any
// attached files by permalink.
func messageBlocks(text string, files []domain.File) []slack.Block {
	var blocks []slack.Block
	if text != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil))
	}
	if len(files) > 0 {
		elements := make([]slack.MixedElement, 0, len(files))
		for _, f := range files {
			elements = append(elements, slack.NewTextBlockObject(
				slack.MarkdownType, fmt.Sprintf("<%s|%s>", f.Permalink, f.Name), false, false))
		}
		blocks = append(blocks, slack.NewContextBlock("", elements...))
	}
	return blocks
}

// newTicketAckBlocks is the in-thread acknowledgement posted under a fresh
// ticket, with a pointer to the FAQ canvas and a close button.
func newTicketAckBlocks(frontendTS, faqURL string) []slack.Block {
	ack := slack.NewRichTextBlock("",
		slack.NewRichTextSection(
			slack.NewRichTextSectionTextElement(
				"a stonemason will shortly be with you! in the meantime please read through the ", nil),
			slack.NewRichTextSectionLinkElement(faqURL, "FAQ", nil),
			slack.NewRichTextSectionTextElement(" as many questions are answered there!", nil),
		))

	closeButton := slack.NewButtonBlockElement("resolve_ticket", frontendTS,
		slack.NewTextBlockObject(slack.PlainTextType, "close portal", false, false)).
		WithStyle(slack.StylePrimary)

	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, newTicketPretext, false, false), nil, nil),
		ack,
		slack.NewActionBlock("", closeButton),
	}
}

// backendControlBlocks is the first reply under a mirrored ticket: a link
// back to the frontend message plus the close button and assignment picker.
func backendControlBlocks(frontendChannel, frontendTS, workspaceURL string) []slack.Block {
	ref, _ := json.Marshal([2]string{frontendChannel, frontendTS})

	closeButton := slack.NewButtonBlockElement("resolve_ticket_backend", string(ref),
		slack.NewTextBlockObject(slack.PlainTextType, "close ticket", false, false)).
		WithStyle(slack.StylePrimary)

	assignSelect := slack.NewOptionsSelectBlockElement(slack.OptTypeUser,
		slack.NewTextBlockObject(slack.PlainTextType, "assign user (pings)", false, false),
		fmt.Sprintf("assign_user_backend::%s::%s", frontendChannel, frontendTS))

	return []slack.Block{
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("<%s|frontend>", archiveURL(workspaceURL, frontendChannel, frontendTS)),
			false, false)),
		slack.NewActionBlock("", closeButton, assignSelect),
	}
}

// assignmentDMBlocks is the direct message sent to a newly assigned
// stonemason, with bullet links to both sides of the ticket.
func assignmentDMBlocks(frontendChannel, frontendTS, backendChannel, backendTS, workspaceURL string) []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("Hey, a ticket in <#%s> was assigned to you. Take a look:", frontendChannel),
				false, false), nil, nil),
		slack.NewRichTextBlock("",
			slack.NewRichTextList(slack.RTEListBullet, 0,
				slack.NewRichTextSection(
					slack.NewRichTextSectionLinkElement(
						archiveURL(workspaceURL, frontendChannel, frontendTS), "frontend", nil)),
				slack.NewRichTextSection(
					slack.NewRichTextSectionLinkElement(
						archiveURL(workspaceURL, backendChannel, backendTS), "backend", nil)),
			)),
	}
}

// aiAnswerBlocks lays out a structured AI answer under a pretext.
func aiAnswerBlocks(pretext, answer, explanation string) []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, pretext, false, false), nil, nil),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*Answer:* "+answer, false, false), nil, nil),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, explanation, false, false), nil, nil),
	}
}

// projectPreviewBlocks builds the unfurl attachment for a showcase project.
// Markup characters are stripped from the title so it cannot break out of
// the bold span.
func projectPreviewBlocks(p *domain.Project) []slack.Block {
	safeTitle := titleMarkup.ReplaceAllString(p.Title, "")

	contextElements := []slack.MixedElement{
		slack.NewTextBlockObject(slack.PlainTextType, fmt.Sprintf("Week %d", p.Week), false, false),
		slack.NewTextBlockObject(slack.PlainTextType, p.TimeText, false, false),
	}
	if p.DemoURL != "" {
		contextElements = append(contextElements, slack.NewTextBlockObject(
			slack.MarkdownType, fmt.Sprintf("<%s|Demo>", p.DemoURL), false, false))
	}
	if p.RepoURL != "" {
		contextElements = append(contextElements, slack.NewTextBlockObject(
			slack.MarkdownType, fmt.Sprintf("<%s|Repo>", p.RepoURL), false, false))
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*"+safeTitle+"*", false, false), nil, nil),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, p.Description, false, false), nil, nil),
	}
	if p.ScreenshotURL != "" {
		blocks = append(blocks, slack.NewImageBlock(p.ScreenshotURL, "Project screenshot", "", nil))
	}
	blocks = append(blocks, slack.NewContextBlock("", contextElements...))
	return blocks
}

func faqSectionText(found bool, text string) string {
	if !found {
		return faqNotFoundText
	}
	return faqFoundPretext + "\n\n" + text
}

func aiAnswerText(ok bool, answer, explanation, reason string) string {
	if ok {
		return aiAnswerPretext + "\n*Answer:* " + answer + "\n\n" + explanation
	}
	return aiRefusalPretext + "\nI cannot answer because: " + strings.TrimSpace(reason)
}
