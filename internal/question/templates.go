// AngelaMos | 2026
// templates.go

package question

import "fmt"

const (
	TypeMultipleChoice = "multiple_choice"
	TypeDescriptive    = "descriptive"
)

// queryTopics seeds retrieval so the pool spans different parts of a document.
var queryTopics = []string{
	"main concepts and principles",
	"key terms and definitions",
	"important facts and figures",
	"processes and methods",
	"theories and frameworks",
	"examples and case studies",
	"problems and solutions",
	"causes and effects",
	"advantages and disadvantages",
	"historical developments",
	"practical applications",
	"future implications",
}

// promptTemplates take the fragment as %[1]s and the subject as %[2]s.
var promptTemplates = map[string][]string{
	TypeMultipleChoice: {
		`Based on this text: %[1]s

Create a multiple choice question about %[2]s using this format:
Question: (Ask about %[2]s and its significance, purpose, or function)
Options:
A) (correct answer)
B) (plausible but incorrect answer)
C) (plausible but incorrect answer)
D) (plausible but incorrect answer)
Answer: (letter) - (brief explanation based on the text)`,
		`From the following content: %[1]s

Generate a multiple choice question that tests understanding of %[2]s with this format:
Question: (Ask about how %[2]s works, relates to other concepts, or is applied)
Options:
A) (correct answer)
B) (plausible but incorrect answer)
C) (plausible but incorrect answer)
D) (plausible but incorrect answer)
Answer: (letter) - (brief explanation based on the text)`,
		`Using this excerpt: %[1]s

Create a conceptual multiple choice question about %[2]s using this format:
Question: (Ask about the characteristics, types, or components of %[2]s)
Options:
A) (correct answer)
B) (plausible but incorrect answer)
C) (plausible but incorrect answer)
D) (plausible but incorrect answer)
Answer: (letter) - (brief explanation based on the text)`,
	},
	TypeDescriptive: {
		`Based on this text: %[1]s

Create a descriptive question about %[2]s using this format:
Question: (Ask about what %[2]s is and why it's important)
Answer: (Detailed explanation with relevant information from the text)`,
		`From the following content: %[1]s

Generate a descriptive question that explores %[2]s with this format:
Question: (Ask about how %[2]s works or is implemented)
Answer: (Step-by-step explanation with examples from the text)`,
		`Using this excerpt: %[1]s

Create an analytical descriptive question about %[2]s using this format:
Question: (Ask about the impact, benefits, or challenges of %[2]s)
Answer: (Analytical explanation with evidence from the text)`,
	},
}

const structuredSuffix = `

Respond only with a JSON object of the form {"question": "...", "options": ["...", "...", "...", "..."], "answer": "..."}. Use an empty options list for descriptive questions.`

func buildPrompt(qtype string, slot int, fragment, subject string) string {
	templates := promptTemplates[qtype]
	return fmt.Sprintf(templates[slot%len(templates)], fragment, subject)
}

// cannedReplies stand in for model output that has no Question marker.
var cannedReplies = map[string]string{
	TypeMultipleChoice: `Question: What is the main topic discussed in this content?
Options:
A) The primary subject matter
B) A secondary concept
C) An unrelated topic
D) A tangential reference
Answer: A - The primary subject matter is the main focus of the text.`,
	TypeDescriptive: `Question: Explain the key concept presented in this text.
Answer: The text discusses important information related to the main topic. It provides details, explanations, and examples to help understand the concept.`,
}

type fallbackTemplate struct {
	question string
	answer   string
	options  []string
}

// fallbackFor returns the deterministic question used when a slot's reply
// cannot be used. idx selects one of three templates per type.
func fallbackFor(qtype string, idx int, subject string) fallbackTemplate {
	idx %= 3

	if qtype == TypeMultipleChoice {
		return []fallbackTemplate{
			{
				question: fmt.Sprintf("What is the primary role of %s described in the text?", subject),
				answer:   "A - It serves as a fundamental concept central to the topic being discussed.",
				options: []string{
					"It serves as a fundamental concept central to the topic being discussed",
					"It represents a minor detail with limited relevance",
					"It contradicts the main principles presented",
					"It is mentioned only as a historical reference",
				},
			},
			{
				question: fmt.Sprintf("How does %s relate to the other concepts in the text?", subject),
				answer:   "B - It works in conjunction with other elements to form a complete system.",
				options: []string{
					"It operates independently of all other components",
					"It works in conjunction with other elements to form a complete system",
					"It replaces older concepts mentioned in the text",
					"It serves as a counterexample to the main theory",
				},
			},
			{
				question: fmt.Sprintf("What characteristic of %s is emphasized in the content?", subject),
				answer:   "C - Its practical applications in real-world scenarios.",
				options: []string{
					"Its theoretical foundation and origins",
					"Its limitations and constraints",
					"Its practical applications in real-world scenarios",
					"Its historical development over time",
				},
			},
		}[idx]
	}

	return []fallbackTemplate{
		{
			question: fmt.Sprintf("Explain the concept of %s as presented in the text.", subject),
			answer: fmt.Sprintf("The text discusses %s as an important element that contributes to "+
				"understanding the main topic. It has specific characteristics and functions that "+
				"make it relevant in this context.", subject),
		},
		{
			question: fmt.Sprintf("What are the key aspects of %s mentioned in the content?", subject),
			answer: fmt.Sprintf("According to the text, %s encompasses several important aspects. "+
				"These include its definition, purpose, and application within the broader framework "+
				"discussed in the document.", subject),
		},
		{
			question: fmt.Sprintf("How does %s function within the system described in the text?", subject),
			answer: fmt.Sprintf("The text explains that %s functions by interacting with other components "+
				"in the system. This interaction facilitates processes that are essential to the overall "+
				"operation or concept being discussed.", subject),
		},
	}[idx]
}

func collisionSuffix(qtype string) string {
	if qtype == TypeMultipleChoice {
		return " (expanded)"
	}
	return " (in detail)"
}
