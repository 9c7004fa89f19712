package usecase

import (
	"fmt"
	"strings"

	"lexrag/internal/domain"
)

const basePromptInstruction = `You are a legal research assistant specialising in case law. ` +
	`Answer the user's question accurately and cite authority for every proposition of law. ` +
	`Write citations in their conventional neutral form, for example "Smith v Jones [2008] UKHL 12".`

var modeInstructions = map[domain.ChatMode]string{
	domain.ModeSourcesOnly: `Rely exclusively on the provided sources. ` +
		`If the sources do not answer the question, say so plainly rather than speculating.`,
	domain.ModeBalanced: `Ground your answer in the provided sources where they are relevant, ` +
		`and supplement with well-established authority you are confident about.`,
	domain.ModeCreative: `Use the provided sources as a starting point and explore analogous ` +
		`authority, persuasive reasoning and likely counter-arguments.`,
	domain.ModeTribunal: `Answer as if advising on tribunal proceedings: focus on procedural ` +
		`posture, applicable tests and the weight each authority carries before the tribunal.`,
}

const sourcesSectionInstruction = `End your answer with a "Sources:" section listing every ` +
	`citation you used, one per line, each prefixed with its bracketed number, e.g. "[1] Smith v Jones [2008] UKHL 12".`

// PromptAssembler builds the message sequence sent to the completion
// service: one synthesized system message followed by the caller's
// history unmodified.
type PromptAssembler interface {
	Assemble(history []domain.Message, fragments []domain.RankedFragment, mode domain.ChatMode) []domain.Message
}

type promptAssembler struct{}

// NewPromptAssembler creates the default PromptAssembler.
func NewPromptAssembler() PromptAssembler {
	return promptAssembler{}
}

func (promptAssembler) Assemble(history []domain.Message, fragments []domain.RankedFragment, mode domain.ChatMode) []domain.Message {
	var sb strings.Builder
	sb.WriteString(basePromptInstruction)
	sb.WriteString("\n\n")

	instruction, ok := modeInstructions[mode]
	if !ok {
		instruction = modeInstructions[domain.ModeBalanced]
	}
	sb.WriteString(instruction)

	if len(fragments) > 0 {
		sb.WriteString("\n\nRelevant case-law extracts, numbered by relevance:\n")
		for i, f := range fragments {
			fmt.Fprintf(&sb, "\n[%d] %s (%s) - %d%% match\n", i+1, f.Citation, f.Court, similarityPct(f.Similarity))
			sb.WriteString(domain.TruncateContent(f.Content, domain.PromptContentLimit))
			sb.WriteString("\n")
		}
		sb.WriteString("\nWhen you rely on one of these extracts, cite it as [n] using the numbering above. ")
		sb.WriteString("You may also cite other authorities you know that are not listed.")
	}

	sb.WriteString("\n\n")
	sb.WriteString(sourcesSectionInstruction)

	messages := make([]domain.Message, 0, len(history)+1)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: sb.String()})
	messages = append(messages, history...)
	return messages
}

func similarityPct(similarity float64) int {
	pct := int(similarity*100 + 0.5)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
