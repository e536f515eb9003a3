// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"bytes"
	"text/template"
)

const readSystemPrompt = `You are a prominent AI researcher helping students decide whether they should read a paper.
You will be given the title and abstract of the paper and the student's intention for reading.
Tell them whether to read it. If they should, give insights and focus points for reading it, based on the abstract.

Respond with a JSON object with exactly two keys and no text outside it:
- "read": "yes" or "no"
- "insights": the insights or focus points for reading the paper

Example response:
{"read": "yes", "insights": "Focus on the ablation in section 4, which isolates the effect of the attention variant."}`

const citeSystemPrompt = `You are a prominent AI researcher helping students decide whether to cite a paper in their own research paper.
You will be given the title and abstract of the paper, the student's keyword and their intention.
Tell them whether to cite it. If they should, explain why it belongs in their paper, based on the abstract.

Respond with a JSON object with exactly two keys and no text outside it:
- "put": "yes" or "no"
- "reason": why the paper should or should not be cited

Example response:
{"put": "no", "reason": "The paper studies image segmentation, unrelated to the student's topic."}`

var readUserTmpl = template.Must(template.New("read").Parse(`Title of the paper: {{.Paper.Title}}
Abstract of the paper: {{.Paper.Abstract}}

Student's intention for reading the paper: {{.Intention}}
Output:
`))

var citeUserTmpl = template.Must(template.New("cite").Parse(`Title of the paper: {{.Paper.Title}}
Abstract of the paper: {{.Paper.Abstract}}

Student's keyword: {{.Keyword}}
Student's intention for the research paper: {{.Intention}}
Output:
`))

type promptData struct {
	Paper     Paper
	Intention string
	Keyword   string
}

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
