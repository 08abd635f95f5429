package importer

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Markdown notebooks use prefixed blocks: Q: starts a question, A: its
// explanation, T: an optional topic label. "---" separates entries.
const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	topicPrefix    = "T:"
)

// Draft is one parsed entry before it becomes a stored note.
type Draft struct {
	Question string
	Answer   string
	Topic    string
}

type parseState int

const (
	seeking parseState = iota
	readingQuestion
	readingAnswer
	readingTopic
)

// ParseFile reads a markdown notebook from disk and extracts all
// drafts.
func ParseFile(path string) ([]Draft, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all drafts. Entries
// without a question are dropped; everything else is kept verbatim,
// including blank lines inside a block.
func Parse(r io.Reader) ([]Draft, error) {
	scanner := bufio.NewScanner(r)
	var drafts []Draft
	var current Draft
	var block []string
	state := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch state {
		case readingQuestion:
			current.Question = content
		case readingAnswer:
			current.Answer = content
		case readingTopic:
			current.Topic = strings.TrimSpace(content)
		}
		block = nil
	}

	finishDraft := func() {
		flushBlock()
		if current.Question != "" {
			drafts = append(drafts, current)
		}
		current = Draft{}
		state = seeking
	}

	stripPrefix := func(line, prefix string) string {
		content := line[len(prefix):]
		return strings.TrimPrefix(content, " ")
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishDraft()
			continue
		}

		switch {
		case strings.HasPrefix(line, questionPrefix):
			// A new question always starts a new draft.
			if state != seeking {
				finishDraft()
			} else {
				flushBlock()
			}
			state = readingQuestion
			block = append(block, stripPrefix(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			state = readingAnswer
			block = append(block, stripPrefix(line, answerPrefix))
		case strings.HasPrefix(line, topicPrefix):
			flushBlock()
			state = readingTopic
			block = append(block, stripPrefix(line, topicPrefix))
		default:
			if state != seeking {
				block = append(block, line)
			}
		}
	}

	finishDraft() // Finish the very last draft in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return drafts, nil
}
