package domain_test

import (
	"strings"
	"testing"

	"lexrag/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestSplitParagraphs(t *testing.T) {
	long := strings.Repeat("The assessee discharged the initial onus under section 68. ", 3)

	t.Run("splits on blank lines", func(t *testing.T) {
		body := long + "\n\n" + long + "\n\n" + long
		paras := domain.SplitParagraphs(body)
		assert.Len(t, paras, 3)
		assert.Equal(t, strings.TrimSpace(long), paras[0])
	})

	t.Run("normalizes CRLF", func(t *testing.T) {
		body := long + "\r\n\r\n" + long
		paras := domain.SplitParagraphs(body)
		assert.Len(t, paras, 2)
	})

	t.Run("merges a short heading into the following paragraph", func(t *testing.T) {
		body := "ORDER\n\n" + long
		paras := domain.SplitParagraphs(body)
		assert.Len(t, paras, 1)
		assert.True(t, strings.HasPrefix(paras[0], "ORDER"))
	})

	t.Run("merges a trailing short line into the preceding paragraph", func(t *testing.T) {
		body := long + "\n\nSd/- Judicial Member"
		paras := domain.SplitParagraphs(body)
		assert.Len(t, paras, 1)
		assert.True(t, strings.HasSuffix(paras[0], "Sd/- Judicial Member"))
	})

	t.Run("splits an oversized paragraph at sentence boundaries", func(t *testing.T) {
		body := strings.Repeat("This sentence pads the paragraph well beyond the maximum allowed length for one fragment. ", 30)
		paras := domain.SplitParagraphs(body)
		assert.Greater(t, len(paras), 1)
		for _, p := range paras {
			assert.LessOrEqual(t, len([]rune(p)), domain.MaxParagraphLength)
		}
	})

	t.Run("accumulated short run stays ahead of the next long paragraph", func(t *testing.T) {
		// Several short lines accumulate past the minimum; they must be
		// emitted as their own paragraph before the long one, with
		// nothing lost or reordered.
		shorts := "IN THE INCOME TAX APPELLATE TRIBUNAL\n\n" +
			"DELHI BENCH 'B', NEW DELHI\n\n" +
			"ITA No. 1234/Del/2019, Assessment Year 2015-16"
		paras := domain.SplitParagraphs(shorts + "\n\n" + long)
		assert.Len(t, paras, 2)
		assert.True(t, strings.HasPrefix(paras[0], "IN THE INCOME TAX"))
		assert.True(t, strings.HasSuffix(paras[0], "2015-16"))
		assert.Equal(t, strings.TrimSpace(long), paras[1])
	})

	t.Run("empty body yields nothing", func(t *testing.T) {
		assert.Empty(t, domain.SplitParagraphs("   \n\n  "))
	})

	t.Run("short-only document survives as one paragraph", func(t *testing.T) {
		paras := domain.SplitParagraphs("Short one.\n\nShort two.")
		assert.Len(t, paras, 1)
	})
}
