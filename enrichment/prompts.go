package enrichment

import "fmt"

const languagePrompt = `What programming language is used in the following Jupyter notebook?
Answer with only the language name. If several languages are used, answer with a comma-separated list.

Notebook:
%s`

const contextPrompt = `The following Jupyter notebook teaches computing through a real-world subject.
What is that subject or context (for example economics, biology, physics, public health)?
Answer with a short phrase of no more than five words.

Notebook:
%s`

const sequencePrompt = `Within a course made of several notebooks, is the following notebook most likely
at the beginning, in the middle, or at the end of the sequence?
Answer with exactly one word: beginning, middle, or end.

Notebook:
%s`

const conceptsPrompt = `List the main computer science concepts taught in the following Jupyter notebook
(for example loops, functions, recursion, data frames, regression).
Answer with a comma-separated list of at most eight short terms and nothing else.

Notebook:
%s`

func buildPrompt(template, text string) string {
	return fmt.Sprintf(template, text)
}
