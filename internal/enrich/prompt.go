// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"bytes"
	"text/template"
)

// summaryPromptTmpl asks the model for the structured summary of one
// abstract. The response must be a JSON object with exactly the listed
// keys; absent information is an empty string, never a missing key.
var summaryPromptTmpl = template.Must(template.New("summary").Parse(`You are a research assistant summarizing one academic paper from its abstract.

Produce a JSON object with exactly these keys:
- "motivation": why the work was done
- "method": the approach taken
- "result": the outcome
- "translation": the full abstract translated into {{.Language}}
- "short_summary": a one-sentence topic summary (at most 50 characters, no markdown, no formulas)
- "remark": the field of the work in at most 15 characters, algorithm first (e.g. "LLM/RL", "RL/multi-agent")

Except for "remark", write every value in {{.Language}}. If a section is not present in the abstract, use an empty string for it. Respond with the JSON object only, no text outside it.

The abstract is between <summary></summary>:
<summary>{{.Summary}}</summary>
`))

// tagPromptTmpl asks the model for the primary category and topic tags
// of one abstract. The tag list must always end with the "/unread"
// sentinel; the enricher appends it anyway if the model forgets.
var tagPromptTmpl = template.Must(template.New("tags").Parse(`Here is the abstract of an academic paper:

{{.Summary}}

Determine the paper's primary research area (e.g. RL, MTS, NLP, multimodal, CV, MARL, LLM) using short English technical abbreviations, and summarize at most 10 tags that capture the paper's topics. Always include "/unread" as the final tag.

There must be exactly one "category"; "tags" may hold several entries. Respond with a JSON object in this form and nothing else:
{
    "category": "RL",
    "tags": ["reinforcement-learning", "optimization", "/unread"]
}
`))

// systemPrompt is sent with every completion request.
const systemPrompt = "You are a careful research assistant. You answer accurately and follow the requested output format exactly."

type promptData struct {
	Summary  string
	Language string
}

func renderSummaryPrompt(summary, language string) (string, error) {
	var buf bytes.Buffer
	if err := summaryPromptTmpl.Execute(&buf, promptData{Summary: summary, Language: language}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderTagPrompt(summary string) (string, error) {
	var buf bytes.Buffer
	if err := tagPromptTmpl.Execute(&buf, promptData{Summary: summary}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
