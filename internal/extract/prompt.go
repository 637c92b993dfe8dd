package extract

import "strings"

const promptTemplate = `You are a data extraction engine. Parse the user habit-tracking text and output ONLY a JSON array of objects, nothing else.

User Input:
{{input}}

Each object must follow this schema:
[
  {
    "activity": "string",
    "quantity": number,
    "unit": "string",
    "category": "string",
    "confidence": number
  }
]

Extraction Rules:
1. Identify all habits mentioned and create one object per habit.
2. Default quantity to 1 when no numeric value is present.
3. Normalize units (e.g. "hrs" to "hours", "mins" to "minutes").
4. category is one of: health, fitness, work, learning, self_care, other.
5. confidence is between 0 and 1 and reflects how clear the input is.
6. If no valid habits are found, return an empty array: [].

Example:
Input: "Ran 5 miles and meditated for 10 minutes"
Output:
[
  {"activity":"running","quantity":5,"unit":"miles","category":"fitness","confidence":0.95},
  {"activity":"meditation","quantity":10,"unit":"minutes","category":"self_care","confidence":0.90}
]

Respond with valid JSON only, with no comments, explanations, or additional keys.`

// Prompt renders the extraction prompt for text, quoted so it cannot
// escape the input slot.
func Prompt(text string) string {
	return strings.Replace(promptTemplate, "{{input}}", quote(text), 1)
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s) + `"`
}
