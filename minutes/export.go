package minutes

import (
	"fmt"
	"strings"
)

// ExportOptions controls which sections the exporters include.
type ExportOptions struct {
	IncludeTranscript bool
}

// ExportMarkdown renders a completed meeting as a Markdown document.
func ExportMarkdown(m Meeting, opts ExportOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", m.Title)
	fmt.Fprintf(&b, "**创建时间**: %s\n", m.CreatedAt.Format("2006/01/02 15:04:05"))
	fmt.Fprintf(&b, "**音频文件**: %s\n", m.AudioFile.Name)
	if m.AudioFile.Duration > 0 {
		fmt.Fprintf(&b, "**时长**: %s\n", formatDuration(m.AudioFile.Duration))
	}
	b.WriteString("\n---\n\n")

	fmt.Fprintf(&b, "## 会议概述\n\n%s\n\n", m.Summary.Overview)

	if len(m.Summary.KeyPoints) > 0 {
		b.WriteString("## 关键要点\n\n")
		for i, point := range m.Summary.KeyPoints {
			fmt.Fprintf(&b, "%d. %s\n", i+1, point)
		}
		b.WriteString("\n")
	}

	if len(m.Summary.Decisions) > 0 {
		b.WriteString("## 决策事项\n\n")
		for i, decision := range m.Summary.Decisions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, decision)
		}
		b.WriteString("\n")
	}

	if len(m.Summary.ActionItems) > 0 {
		b.WriteString("## 行动项\n\n")
		for i, item := range m.Summary.ActionItems {
			status := "[ ]"
			if item.Completed {
				status = "[x]"
			}
			line := fmt.Sprintf("%d. %s", i+1, status)
			if item.Priority != "" {
				line += fmt.Sprintf(" [%s]", strings.ToUpper(string(item.Priority)))
			}
			line += " " + item.Task
			if item.Assignee != "" {
				line += " @" + item.Assignee
			}
			if item.Deadline != "" {
				line += fmt.Sprintf(" (截止: %s)", item.Deadline)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if len(m.Summary.Participants) > 0 {
		b.WriteString("## 参会人员\n\n")
		for _, p := range m.Summary.Participants {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}

	if len(m.Summary.NextSteps) > 0 {
		b.WriteString("## 后续步骤\n\n")
		for i, step := range m.Summary.NextSteps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		b.WriteString("\n")
	}

	if opts.IncludeTranscript {
		fmt.Fprintf(&b, "## 完整转录\n\n%s\n", m.Transcript)
	}

	return b.String()
}

// ExportText renders the meeting transcript as plain text with a
// short header.
func ExportText(m Meeting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", m.Title)
	fmt.Fprintf(&b, "%s | %s\n\n", m.CreatedAt.Format("2006/01/02 15:04:05"), m.AudioFile.Name)
	b.WriteString(m.Transcript)
	b.WriteString("\n")
	return b.String()
}

// ExportFilename names the downloaded Markdown document.
func ExportFilename(m Meeting) string {
	return m.Title + ".md"
}

func formatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
