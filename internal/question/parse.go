// AngelaMos | 2026
// parse.go

package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	markerQuestion = "Question:"
	markerOptions  = "Options:"
	markerAnswer   = "Answer:"
)

var (
	errNoQuestion     = errors.New("missing Question section")
	errNoOptions      = errors.New("missing Options or Answer section")
	errNoAnswer       = errors.New("missing Answer section")
	errOptionCount    = errors.New("incorrect number of options")
	errDuplicate      = errors.New("duplicate question")
	errEmptyQuestion  = errors.New("empty question text")
	errGeneratorError = errors.New("generator reported an error")
)

var optionPrefixes = []string{"A)", "B)", "C)", "D)"}

// segment returns the text between the first occurrence of marker and the
// next occurrence of the same marker.
func segment(reply, marker string) (string, bool) {
	parts := strings.SplitN(reply, marker, 3)
	if len(parts) < 2 {
		return "", false
	}
	return parts[1], true
}

func before(s, marker string) string {
	if i := strings.Index(s, marker); i >= 0 {
		return s[:i]
	}
	return s
}

// parseMarkers reads a reply laid out with Question/Options/Answer markers.
// The question text is claimed in used as soon as it is read, so a reply
// that later fails validation still blocks its text for later slots.
func parseMarkers(reply, qtype string, used map[string]bool) (Question, error) {
	if strings.Contains(reply, "Error:") {
		return Question{}, errGeneratorError
	}

	body, ok := segment(reply, markerQuestion)
	if !ok {
		return Question{}, errNoQuestion
	}

	stop := markerAnswer
	if qtype == TypeMultipleChoice {
		stop = markerOptions
	}
	text := strings.TrimSpace(before(body, stop))

	if text == "" {
		return Question{}, errEmptyQuestion
	}
	if used[text] {
		return Question{}, fmt.Errorf("%w: %s", errDuplicate, text)
	}
	used[text] = true

	q := Question{Question: text, QuestionType: qtype}

	if qtype == TypeMultipleChoice {
		if !strings.Contains(reply, markerOptions) || !strings.Contains(reply, markerAnswer) {
			return Question{}, errNoOptions
		}

		optionsBlock, _ := segment(reply, markerOptions)
		q.Options = parseOptions(before(optionsBlock, markerAnswer))
		if len(q.Options) != len(optionPrefixes) {
			return Question{}, fmt.Errorf("%w: %d", errOptionCount, len(q.Options))
		}
	}

	answer, ok := segment(reply, markerAnswer)
	if !ok {
		return Question{}, errNoAnswer
	}
	q.Answer = strings.TrimSpace(answer)

	return q, nil
}

func parseOptions(block string) []string {
	var options []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		for _, p := range optionPrefixes {
			if strings.HasPrefix(line, p) {
				options = append(options, strings.TrimSpace(line[len(p):]))
				break
			}
		}
	}
	return options
}

type structuredReply struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// parseStructured reads a JSON object reply. It applies the same duplicate
// and option-count rules as parseMarkers.
func parseStructured(reply, qtype string, used map[string]bool) (Question, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Question{}, errors.New("no JSON object in reply")
	}

	var sr structuredReply
	if err := json.Unmarshal([]byte(reply[start:end+1]), &sr); err != nil {
		return Question{}, fmt.Errorf("decode structured reply: %w", err)
	}

	text := strings.TrimSpace(sr.Question)
	if text == "" {
		return Question{}, errEmptyQuestion
	}
	if used[text] {
		return Question{}, fmt.Errorf("%w: %s", errDuplicate, text)
	}

	answer := strings.TrimSpace(sr.Answer)
	if answer == "" {
		return Question{}, errNoAnswer
	}

	q := Question{Question: text, Answer: answer, QuestionType: qtype}

	if qtype == TypeMultipleChoice {
		for _, o := range sr.Options {
			o = strings.TrimSpace(o)
			for _, p := range optionPrefixes {
				o = strings.TrimSpace(strings.TrimPrefix(o, p))
			}
			if o != "" {
				q.Options = append(q.Options, o)
			}
		}
		if len(q.Options) != len(optionPrefixes) {
			return Question{}, fmt.Errorf("%w: %d", errOptionCount, len(q.Options))
		}
	}

	used[text] = true
	return q, nil
}
