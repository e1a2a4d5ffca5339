package ai

const supportPrompt = `You are stonepheus, a user support expert for a program called Siege. Your task is to answer the user's question as accurately as possible, using ONLY the "Theme info" and "FAQ knowledge base" provided below. Do not use outside knowledge except for common sense. If the answer is not present in the information provided, or you are not 100% certain, refuse to answer the question.

Your answer should be a single JSON object in one of the following forms:
{
  "ok": true,  // if the answer is found in the info provided
  "answer": "A direct answer to the user's query without elaboration",
  "explanation": "A more detailed explanation, referring to relevant parts of the FAQ"
}
{
  "ok": false,  // if you are even slightly unsure of the answer
  "reason": "A reason why you are unsure or the question cannot be answered"
}
`

const faqSectionPrompt = `You are a section finder assistant who helps the user find a section of the "FAQ knowledge base" provided below. The user will ask you for a single section of the FAQ, and you should answer the text in that section *verbatim* (do not change typos, punctuation, or anything else).

Your response should be a JSON object in the following structure:
{
  "found": true,  // or false if the section is not found
  "text": "The literal, verbatim text of that section in the FAQ, or null if found is false"
}`

// JSON schemas constraining the model output, mirroring the two response
// unions above.
var answerSchema = map[string]any{
	"anyOf": []any{
		map[string]any{
			"type":                 "object",
			"properties":           map[string]any{"ok": map[string]any{"const": false}, "reason": map[string]any{"type": "string"}},
			"required":             []string{"ok"},
			"additionalProperties": false,
		},
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ok":          map[string]any{"const": true},
				"answer":      map[string]any{"type": "string"},
				"explanation": map[string]any{"type": "string"},
			},
			"required":             []string{"ok", "answer", "explanation"},
			"additionalProperties": false,
		},
	},
}

var faqSchema = map[string]any{
	"anyOf": []any{
		map[string]any{
			"type":                 "object",
			"properties":           map[string]any{"found": map[string]any{"const": false}},
			"required":             []string{"found"},
			"additionalProperties": false,
		},
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"found": map[string]any{"const": true},
				"text":  map[string]any{"type": "string"},
			},
			"required":             []string{"found", "text"},
			"additionalProperties": false,
		},
	},
}
