package conversation

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/recalld/internal/llm"
	"github.com/fyrsmithlabs/recalld/internal/memory"
	"github.com/fyrsmithlabs/recalld/internal/mood"
)

const baseSystemPrompt = `You are a supportive mental health companion. Be warm, brief, and practical.
When the user seems down, gently remind them of the positive memories provided below, if any.
Never diagnose, prescribe, or replace professional help. If the user mentions self-harm, encourage them to reach out to a crisis line or a trusted person.`

// buildRequest assembles the provider request: system prompt with mood
// context and recalled memories, plus the retained conversation history
// ending with the new user message.
func buildRequest(history []Turn, message string, recalled []memory.RecallResult, assessment mood.Assessment) llm.Request {
	var sb strings.Builder
	sb.WriteString(baseSystemPrompt)

	sb.WriteString(fmt.Sprintf("\n\nThe user's current mood reads %s (positive %.1f/5, negative %.1f/5).",
		assessment.Label(), assessment.Positive, assessment.Negative))

	memories := make([]string, 0, len(recalled))
	if len(recalled) > 0 {
		sb.WriteString("\n\nPositive memories the user has shared before:")
		for i, r := range recalled {
			sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, r.Content))
			memories = append(memories, r.Content)
		}
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, t := range history {
		role := t.Role
		if role != llm.RoleUser && role != llm.RoleAssistant {
			continue
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	return llm.Request{
		System:   sb.String(),
		Messages: messages,
		Memories: memories,
	}
}
