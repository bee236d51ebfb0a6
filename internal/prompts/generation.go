package prompts

import (
	"fmt"
	"strings"
)

const pageMarkupLimit = 2000

// SelectorSuggestion asks for one replacement selector. markup is expected
// to be condensed and truncated by the caller.
func SelectorSuggestion(original, description, markup string) string {
	return fmt.Sprintf(`Suggest the best CSS selector to find the "%s" element in the HTML below.

Original selector (failed): %s

HTML (partial):
%s

Requirements:
1. The most stable selector (data-testid > id > meaningful class > structure)
2. Return exactly one selector, no explanation
3. A valid CSS or Playwright selector

Selector:`, description, original, markup)
}

type TestContext struct {
	Description   string
	PageURL       string
	PageMarkup    string
	ExistingTests []string
}

// TestGeneration asks for a Go end-to-end test built on playwright-go.
func TestGeneration(tc TestContext) string {
	var prompt strings.Builder

	prompt.WriteString("You are an expert in browser end-to-end testing. Write an end-to-end test for the following requirement.\n\n")
	prompt.WriteString(fmt.Sprintf("Requirement:\n%s\n\n", tc.Description))

	if tc.PageURL != "" {
		prompt.WriteString(fmt.Sprintf("Page URL: %s\n\n", tc.PageURL))
	}

	if tc.PageMarkup != "" {
		markup := tc.PageMarkup
		if len(markup) > pageMarkupLimit {
			markup = markup[:pageMarkupLimit]
		}

		prompt.WriteString(fmt.Sprintf("Page HTML structure:\n%s\n\n", markup))
	}

	if len(tc.ExistingTests) > 0 {
		prompt.WriteString(fmt.Sprintf("Existing tests for reference:\n%s\n\n", strings.Join(tc.ExistingTests, "\n")))
	}

	prompt.WriteString(`Rules:
1. Use the page object pattern
2. Use meaningful test names
3. Use clear assertions (github.com/stretchr/testify)
4. Set reasonable timeouts
5. Handle errors explicitly
6. Prefer data-testid selectors, fall back to other selectors
7. Write Go using github.com/playwright-community/playwright-go
8. Put the test behind the e2e build tag

Return only the test code, no explanation:`)

	return prompt.String()
}

// BugReport asks for a test reproducing a reported issue.
func BugReport(issue, description string) string {
	return fmt.Sprintf(`Write an end-to-end test that reproduces the following bug report:

Issue #%s
%s

Include:
1. Steps to reproduce the bug
2. A comparison of expected and actual behavior
3. Appropriate assertions
4. The page object pattern

Write Go using github.com/playwright-community/playwright-go and github.com/stretchr/testify.`, issue, description)
}
