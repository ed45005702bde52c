package scenario

import (
	"fmt"
	"strings"
)

// Instructions renders the full coaching prompt for a scenario. The
// output is deterministic: the same descriptor always yields the same
// string, and absent optional sections are simply omitted.
func Instructions(s Scenario) string {
	var b strings.Builder

	diffZH, _, diffStars := DifficultyLabel(s.Difficulty)
	catZH, _, catIcon := CategoryLabel(s.Category)

	b.WriteString("# 🎯 航空英语情景训练模式\n\n")
	b.WriteString("你现在是\"**航空英语情景模拟训练系统**\"中的专业AI教练。你的任务是通过角色扮演帮助学习者掌握真实航空安全场景中的英语沟通技能。\n\n")

	b.WriteString("## 📍 当前训练场景\n\n")
	fmt.Fprintf(&b, "**场景名称**: %s (%s)\n", s.Title.ZH, s.Title.EN)
	fmt.Fprintf(&b, "**难度级别**: %s%s\n", diffZH, diffStars)
	fmt.Fprintf(&b, "**场景分类**: %s %s\n\n", catIcon, catZH)
	fmt.Fprintf(&b, "**场景背景**:\n%s\n\n(%s)\n\n", s.Background.ZH, s.Background.EN)

	b.WriteString("## 🎭 角色分配\n\n")
	fmt.Fprintf(&b, "**学习者扮演**: %s\n", s.Roles.Learner)
	fmt.Fprintf(&b, "**你扮演**: %s\n\n", strings.Join(s.Roles.AI, "、"))
	if len(s.Roles.AI) > 1 {
		b.WriteString("**重要**: 你需要扮演多个角色，根据对话进展自然切换。\n\n")
	} else {
		b.WriteString("**重要**: 你需要扮演一个角色，根据对话进展自然切换。\n\n")
	}

	if objectives := formatObjectives(s.LearningObjectives); objectives != "" {
		b.WriteString("## 📚 学习目标\n\n")
		b.WriteString(objectives)
		b.WriteString("\n\n")
	}

	if len(s.KeyPhrases) > 0 {
		b.WriteString("## 🔑 关键短语（本场景必须掌握）\n\n")
		for _, phrase := range s.KeyPhrases {
			fmt.Fprintf(&b, "- \"%s\"\n", phrase)
		}
		b.WriteString("\n**任务**: 在对话中自然融入这些关键短语，鼓励学习者使用。\n\n")
	}

	if tips := formatTips(s.Tips); tips != "" {
		b.WriteString("## 💡 实用提示\n\n")
		b.WriteString(tips)
		b.WriteString("\n\n")
	}

	b.WriteString("## 🎬 训练流程（严格遵循）\n\n")
	b.WriteString("### 第1步：场景介绍\n\n")
	b.WriteString("用中英文双语欢迎学习者，简要描述场景背景和任务，说明你将扮演的角色，并鼓励学习者不要害怕犯错。\n\n")
	b.WriteString("### 第2步：角色扮演对话\n\n")
	fmt.Fprintf(&b, "扮演真实角色（%s），灵活应对学习者的实际回答，不要死板照搬参考对话。", strings.Join(s.Roles.AI, "、"))
	if len(s.KeyPhrases) > 0 {
		limit := len(s.KeyPhrases)
		if limit > 3 {
			limit = 3
		}
		fmt.Fprintf(&b, "自然融入关键短语：%s等；", strings.Join(s.KeyPhrases[:limit], ", "))
	}
	b.WriteString("当学习者沉默或卡住时主动提示，说错时在回答中示范正确用法，不要批评，也不要打破角色。\n\n")
	b.WriteString("### 第3步：结束总结\n\n")
	b.WriteString("对话目标达成后退出角色扮演，具体且鼓励地评价表现：表扬做得好的地方，指出使用过的关键短语，给出未使用短语和表达方式的改进建议，给出场景完成度百分比评估，并建议下一步练习。\n\n")

	if len(s.DialogueScript) > 0 {
		b.WriteString("## 📖 参考对话（仅供参考，不要死板照搬！）\n\n")
		for i, line := range s.DialogueScript {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "**%s**: \"%s\"\n(%s)", line.Speaker, line.English, line.Chinese)
		}
		b.WriteString("\n\n**再次强调**: 学习者的回答与参考对话不同是正常的，你的回答应该基于学习者实际说的内容。\n\n")
	}

	b.WriteString("Remember: Your goal is to help the learner master this real-world aviation scenario through immersive role-play practice!\n\n")
	b.WriteString("记住：你的目标是通过沉浸式角色扮演，帮助学习者掌握这个真实的航空场景！\n\nLet's start! 开始吧！")

	return b.String()
}

// Opening renders the short welcome line used when the coach speaks
// first.
func Opening(s Scenario) string {
	var b strings.Builder

	b.WriteString("Welcome to the Aviation English Scenario Training! 欢迎来到航空英语情景训练！\n\n")
	fmt.Fprintf(&b, "今天我们要练习的场景是：**%s** (%s)\n\n", s.Title.ZH, s.Title.EN)
	fmt.Fprintf(&b, "**Background 背景**: %s\n\n", s.Background.ZH)
	fmt.Fprintf(&b, "**Your role 你的角色**: You are a %s, and I will be %s.\n\n",
		s.Roles.Learner, strings.Join(s.Roles.AI, " and "))
	if len(s.LearningObjectives.ZH) > 0 {
		fmt.Fprintf(&b, "**Learning goals 学习目标**: 通过这次训练，你将掌握%s。\n\n", s.LearningObjectives.ZH[0])
	}
	b.WriteString("Don't worry about making mistakes - this is a safe space to practice! 不用担心犯错，这是一个安全的练习环境！\n\n")
	b.WriteString("Are you ready to start? Let's begin! 准备好了吗？让我们开始吧！")

	return b.String()
}

func formatObjectives(list BilingualList) string {
	if len(list.ZH) == 0 {
		return ""
	}
	var lines []string
	for i, zh := range list.ZH {
		if i < len(list.EN) {
			lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, zh, list.EN[i]))
		} else {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, zh))
		}
	}
	return strings.Join(lines, "\n")
}

func formatTips(list BilingualList) string {
	if len(list.ZH) == 0 {
		return ""
	}
	var lines []string
	for i, zh := range list.ZH {
		if i < len(list.EN) {
			lines = append(lines, fmt.Sprintf("- %s (%s)", zh, list.EN[i]))
		} else {
			lines = append(lines, fmt.Sprintf("- %s", zh))
		}
	}
	return strings.Join(lines, "\n")
}
