package extractor

import "fmt"

// extractionFocus lists what the model should look for; shared by every
// prompt variant.
const extractionFocus = `Focus on:
- User preferences and habits
- Important personal details
- Recurring topics/interests
- Problem-solving patterns
- Decision-making criteria
- Skills and expertise areas
- Goal statements
- Relationship information

Return only memories that are:
1. Personal to the user (not general facts)
2. Likely to be useful for future conversations
3. Specific and actionable`

// templatePrompt builds the prompt for template-following models
// (NuExtract, OpenAI): the reply must be a JSON object with a "memories"
// array.
func templatePrompt(chunk, title string) string {
	return fmt.Sprintf(`Extract personal memories, preferences, and contextual information from this conversation.

Context: %s

Text:
%s

%s

Use this JSON template:
{
  "memories": [
    {
      "content": "The extracted memory content",
      "category": "One of: preference, fact, pattern, goal, skill, relationship, context, decision_criteria",
      "confidence": "Float between 0 and 1",
      "reasoning": "Why this is considered a memory"
    }
  ]
}

Extract memories:`, title, chunk, extractionFocus)
}

// arrayPrompt builds the prompt for general-purpose models: the reply must
// be a bare JSON array of memory entries.
func arrayPrompt(chunk, title string) string {
	return fmt.Sprintf(`Extract personal memories from this conversation text.

Context: %s

Text:
%s

%s

For each memory, provide:
1. Memory content (what to remember)
2. Category (preference/fact/pattern/goal/skill/relationship/context/decision_criteria)
3. Confidence (0-1, how confident are you this is worth remembering)
4. Brief reasoning

Format as JSON array:
[
  {
    "content": "memory content here",
    "category": "category here",
    "confidence": 0.9,
    "reasoning": "why this is important"
  }
]

Memories:`, title, chunk, extractionFocus)
}
