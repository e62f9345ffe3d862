package debate

import (
	"fmt"
	"strings"

	"github.com/lorenzotomasdiez/council/internal/llm"
)

func agentSystemPrompt(agent Agent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %q, a member of a deliberating council.", agent.Name)
	if agent.Traits != "" {
		fmt.Fprintf(&sb, " Traits: %s.", agent.Traits)
	}
	if agent.Perspective != "" {
		fmt.Fprintf(&sb, " Perspective: %s.", agent.Perspective)
	}
	fmt.Fprintf(&sb, " Argue with reasoning depth %d.", agent.ReasoningDepth)
	fmt.Fprintf(&sb, " Hold your position with persistence %.2f (0 = easily persuaded, 1 = unmoved)", agent.Persistence)
	fmt.Fprintf(&sb, " and weigh truth over rhetoric with weight %.2f.", agent.TruthSeeking)
	sb.WriteString(" Use a professional, concise tone and cite evidence where possible.")
	return sb.String()
}

func formatArguments(args []Argument) string {
	var sb strings.Builder
	for _, a := range args {
		fmt.Fprintf(&sb, "- %s: %s\n", a.Author, a.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func argumentMessages(agent Agent, question string, prior []Argument, snippets []Snippet) []llm.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\n", question)
	sb.WriteString("Previous arguments:\n")
	if len(prior) == 0 {
		sb.WriteString("(none yet)")
	} else {
		sb.WriteString(formatArguments(prior))
	}
	if len(snippets) > 0 {
		sb.WriteString("\n\nRelevant context from memory:")
		for _, s := range snippets {
			fmt.Fprintf(&sb, "\n- (%.2f) %s", s.Score, s.Text)
		}
	}
	sb.WriteString("\n\nGive your clear, structured argument.")

	return []llm.Message{
		llm.System(agentSystemPrompt(agent)),
		llm.User(sb.String()),
	}
}

func voteMessages(agent Agent, question string, args []Argument) []llm.Message {
	system := fmt.Sprintf(
		"You are %q. Rank the arguments from strongest to weakest by logical strength, relevance "+
			"and supporting evidence. Return only the ordered list of author names.",
		agent.Name,
	)
	user := fmt.Sprintf(
		"Question: %s\n\nArguments:\n%s\n\nReturn the author names, best to worst, separated by commas.",
		question, formatArguments(args),
	)
	return []llm.Message{llm.System(system), llm.User(user)}
}
