package usecase_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexrag/internal/domain"
	"lexrag/internal/usecase"
)

func TestAssemble_SystemMessageThenHistoryVerbatim(t *testing.T) {
	assembler := usecase.NewPromptAssembler()
	history := []domain.Message{
		{Role: domain.RoleUser, Content: "What is the test for negligence?"},
		{Role: domain.RoleAssistant, Content: "The Caparo test applies."},
		{Role: domain.RoleUser, Content: "And for nuisance?"},
	}

	messages := assembler.Assemble(history, nil, domain.ModeBalanced)

	require.Len(t, messages, 4)
	assert.Equal(t, domain.RoleSystem, messages[0].Role)
	assert.Equal(t, history, messages[1:], "caller history must pass through unmodified")
}

func TestAssemble_GroundingBlockNumbering(t *testing.T) {
	assembler := usecase.NewPromptAssembler()
	fragments := []domain.RankedFragment{
		{Citation: "Smith v Jones [2008] UKHL 12", Court: "House of Lords", Similarity: 0.93,
			Fragment: domain.Fragment{Content: "The duty of care extends to economic loss."}},
		{Citation: "Donoghue v Stevenson [1932] AC 562", Court: "House of Lords", Similarity: 0.88,
			Fragment: domain.Fragment{Content: "The neighbour principle."}},
	}

	messages := assembler.Assemble([]domain.Message{{Role: domain.RoleUser, Content: "q"}}, fragments, domain.ModeBalanced)

	system := messages[0].Content
	first := strings.Index(system, "[1] Smith v Jones [2008] UKHL 12 (House of Lords) - 93% match")
	second := strings.Index(system, "[2] Donoghue v Stevenson [1932] AC 562 (House of Lords) - 88% match")
	require.GreaterOrEqual(t, first, 0, "numbered header for rank 1 missing:\n%s", system)
	require.GreaterOrEqual(t, second, 0, "numbered header for rank 2 missing")
	assert.Less(t, first, second, "headers must appear in rank order")
	assert.Contains(t, system, "The duty of care extends to economic loss.")
	assert.Contains(t, system, "cite it as [n]")
}

func TestAssemble_LongFragmentTruncated(t *testing.T) {
	assembler := usecase.NewPromptAssembler()
	long := strings.Repeat("a", domain.PromptContentLimit+200)
	fragments := []domain.RankedFragment{
		{Citation: "A v B", Court: "High Court", Similarity: 0.9, Fragment: domain.Fragment{Content: long}},
	}

	messages := assembler.Assemble([]domain.Message{{Role: domain.RoleUser, Content: "q"}}, fragments, domain.ModeBalanced)

	system := messages[0].Content
	assert.Contains(t, system, strings.Repeat("a", domain.PromptContentLimit)+"...")
	assert.NotContains(t, system, strings.Repeat("a", domain.PromptContentLimit+1))
}

func TestAssemble_NoFragmentsNoGroundingBlock(t *testing.T) {
	assembler := usecase.NewPromptAssembler()

	messages := assembler.Assemble([]domain.Message{{Role: domain.RoleUser, Content: "q"}}, nil, domain.ModeBalanced)

	system := messages[0].Content
	assert.NotContains(t, system, "extracts")
	assert.Contains(t, system, "Sources:", "the sources-section instruction applies even without grounding")
}

func TestAssemble_ModeSelectsInstruction(t *testing.T) {
	assembler := usecase.NewPromptAssembler()
	history := []domain.Message{{Role: domain.RoleUser, Content: "q"}}

	sourcesOnly := assembler.Assemble(history, nil, domain.ModeSourcesOnly)[0].Content
	tribunal := assembler.Assemble(history, nil, domain.ModeTribunal)[0].Content
	unknown := assembler.Assemble(history, nil, domain.ChatMode("bogus"))[0].Content
	balanced := assembler.Assemble(history, nil, domain.ModeBalanced)[0].Content

	assert.Contains(t, sourcesOnly, "exclusively")
	assert.Contains(t, tribunal, "tribunal")
	assert.Equal(t, balanced, unknown, "unknown modes fall back to balanced")
}
