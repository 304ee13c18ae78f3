package gemini

import "text/template"

var scriptTemplate = template.Must(template.New("script").Parse(`You are a viral video scriptwriter. Write a {{.Duration}} script about "{{.Topic}}".
Target word count: approximately {{.TargetWords}} words.

CRITICAL RULES FOR TTS (TEXT-TO-SPEECH):
1. Output ONLY the spoken words. Do NOT include labels like "Hook:", "Body:", "Scene 1", or "Narrator:".
2. Do NOT use markdown bolding (**text**) or italics.
3. Do NOT use emojis.
4. Write as a continuous flow of spoken sentences.
5. Keep it punchy, simple, and engaging (Grade 5 English).
`))

var keywordTemplate = template.Must(template.New("keywords").Parse(`Replace every value in this JSON object with a single, specific,
visual search term (1-2 words) that represents the text conceptually.
Example: {"0.0": "Did you know mummies were eaten?", "5.0": "It is true."} -> {"0.0": "Mummy", "5.0": "Ancient Scroll"}

Input: {{.Segments}}

Return ONLY the JSON object. Keep every key unchanged.
`))
