package workflow

import (
	"errors"
	"fmt"
	"strings"

	"auto_linkedin_post_publisher/notify"
)

func approvalMessage(out Outcome) notify.Message {
	var sb strings.Builder
	sb.WriteString("## LinkedIn post ready for review\n\n")
	fmt.Fprintf(&sb, "**Topic:** %s  \n", out.Topic)
	fmt.Fprintf(&sb, "**Score:** %d/100 after %d critique round(s), %s  \n", out.Score, out.Attempts, strings.ReplaceAll(string(out.Exit), "_", " "))
	fmt.Fprintf(&sb, "**Run:** %s\n\n", out.RunID)
	fmt.Fprintf(&sb, "**[Approve and publish](%s)**\n\n", out.ApprovalURL)
	sb.WriteString("---\n\n")
	sb.WriteString(quote(out.Text))
	sb.WriteString("\n\n")
	if out.Image.URL != "" {
		fmt.Fprintf(&sb, "![post image](%s)\n\n", out.Image.URL)
		if out.Image.SafeDefault {
			sb.WriteString("_No matching photo was found; this is the default image._\n\n")
		}
	}
	if out.Critique != "" {
		sb.WriteString("### Final critique\n\n")
		sb.WriteString(out.Critique)
		sb.WriteString("\n\n")
	}
	if len(out.History) > 1 {
		sb.WriteString("### Score history\n\n")
		for _, t := range out.History {
			mark := ""
			if t.Regression {
				mark = " (regression, discarded)"
			}
			fmt.Fprintf(&sb, "- attempt %d: %d%s\n", t.Attempt, t.Critique.Score, mark)
		}
	}
	return notify.Message{
		Subject:  "Approve LinkedIn post: " + out.Topic,
		Markdown: strings.TrimRight(sb.String(), "\n"),
	}
}

func failureMessage(out Outcome, cause error) notify.Message {
	var sb strings.Builder
	sb.WriteString("## LinkedIn workflow failed\n\n")
	if out.Topic != "" {
		fmt.Fprintf(&sb, "**Topic:** %s  \n", out.Topic)
	}
	fmt.Fprintf(&sb, "**Run:** %s\n\n", out.RunID)
	fmt.Fprintf(&sb, "```\n%s\n```\n", cause)

	var qerr *QualityNotMetError
	if errors.As(cause, &qerr) && qerr.Last.Report != "" {
		sb.WriteString("\n### Last critique\n\n")
		sb.WriteString(qerr.Last.Report)
		sb.WriteString("\n")
	}
	subject := "LinkedIn workflow failed"
	if out.Topic != "" {
		subject += ": " + out.Topic
	}
	return notify.Message{Subject: subject, Markdown: strings.TrimRight(sb.String(), "\n")}
}

func quote(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = ">"
			continue
		}
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}
