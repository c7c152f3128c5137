package extraction

import "fmt"

const primaryPromptTemplate = `You are a professional business analyst. Extract company information from this web content.

CRITICAL INSTRUCTIONS:
1. Return ONLY valid JSON - no markdown, no explanations, no code blocks
2. Be factual and specific - extract what you actually see in the content
3. If information is not clearly present, provide reasonable inference based on context

Web Content:
%s

Return a JSON object with exactly these fields:
{
  "summary": "1-2 sentence professional summary of what this company is and does",
  "whatTheyDo": ["specific action 1", "specific action 2", "specific action 3", "specific action 4"],
  "keywords": ["keyword1", "keyword2", "keyword3", "keyword4", "keyword5"],
  "signals": ["observable signal 1", "observable signal 2", "observable signal 3"]
}

FIELD GUIDELINES:
- summary: Clear, professional, factual description
- whatTheyDo: Specific services/products they provide (verb + noun format)
- keywords: Core business terms, technologies, and industry focus
- signals: Indicators of activity (hiring, funding rounds, product updates, etc.)`

const fallbackPromptTemplate = `Extract company information from this content and return valid JSON only:

Content:
%s

Return valid JSON with these fields (any empty arrays are OK):
{
  "summary": "What is this company?",
  "whatTheyDo": ["thing1", "thing2"],
  "keywords": ["tech1", "tech2"],
  "signals": ["sign1"]
}`

// PrimaryCompletion is the strict, field-by-field request.
func PrimaryCompletion(content string) Completion {
	return Completion{
		Prompt:      fmt.Sprintf(primaryPromptTemplate, content),
		Temperature: 0.2,
		MaxTokens:   800,
		JSONMode:    true,
	}
}

// FallbackCompletion is the simpler, more forgiving request.
func FallbackCompletion(content string) Completion {
	return Completion{
		Prompt:      fmt.Sprintf(fallbackPromptTemplate, content),
		Temperature: 0.1,
		MaxTokens:   500,
	}
}
