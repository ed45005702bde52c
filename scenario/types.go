package scenario

// Category groups scenarios by the kind of situation being trained.
type Category string

const (
	CategoryConflict      Category = "conflict"
	CategoryCommunication Category = "communication"
	CategoryEmergency     Category = "emergency"
	CategoryRoutine       Category = "routine"
)

// Difficulty is the scenario's training tier, ordered beginner first.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

var difficultyRank = map[Difficulty]int{
	DifficultyBeginner:     1,
	DifficultyIntermediate: 2,
	DifficultyAdvanced:     3,
	DifficultyExpert:       4,
}

// Rank returns the ordering position of a difficulty tier; unknown
// tiers sort last.
func (d Difficulty) Rank() int {
	if r, ok := difficultyRank[d]; ok {
		return r
	}
	return len(difficultyRank) + 1
}

// Bilingual holds a Chinese/English text pair.
type Bilingual struct {
	ZH string `json:"zh"`
	EN string `json:"en"`
}

// BilingualList holds parallel Chinese/English string lists.
type BilingualList struct {
	ZH []string `json:"zh"`
	EN []string `json:"en"`
}

// DialogueLine is one line of the reference dialogue script.
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Chinese string `json:"chinese"`
	English string `json:"english"`
}

// Roles assigns the learner's role and the roles the coach plays.
type Roles struct {
	Learner string   `json:"learner"`
	AI      []string `json:"ai"`
}

// Scenario is a predefined role-play exercise descriptor. It is
// read-only content: the tracker and instruction generator consume it
// but never mutate it.
type Scenario struct {
	ID                 string         `json:"id"`
	Title              Bilingual      `json:"title"`
	Category           Category       `json:"category"`
	Difficulty         Difficulty     `json:"difficulty"`
	Roles              Roles          `json:"roles"`
	Background         Bilingual      `json:"background"`
	DialogueScript     []DialogueLine `json:"dialogueScript"`
	KeyPhrases         []string       `json:"keyPhrases"`
	LearningObjectives BilingualList  `json:"learningObjectives"`
	Tips               BilingualList  `json:"tips"`
}

type categoryInfo struct {
	ZH   string
	EN   string
	Icon string
}

var categoryLabels = map[Category]categoryInfo{
	CategoryConflict:      {ZH: "冲突处理", EN: "Conflict Management", Icon: "🔥"},
	CategoryCommunication: {ZH: "机组沟通", EN: "Crew Communication", Icon: "📞"},
	CategoryEmergency:     {ZH: "紧急事件", EN: "Emergency Response", Icon: "🚨"},
	CategoryRoutine:       {ZH: "常规操作", EN: "Routine Operations", Icon: "📋"},
}

type difficultyInfo struct {
	ZH    string
	EN    string
	Stars string
}

var difficultyLabels = map[Difficulty]difficultyInfo{
	DifficultyBeginner:     {ZH: "初级", EN: "Beginner", Stars: "⭐"},
	DifficultyIntermediate: {ZH: "中级", EN: "Intermediate", Stars: "⭐⭐"},
	DifficultyAdvanced:     {ZH: "高级", EN: "Advanced", Stars: "⭐⭐⭐"},
	DifficultyExpert:       {ZH: "专家", EN: "Expert", Stars: "⭐⭐⭐⭐"},
}

// CategoryLabel returns the bilingual display label for a category.
func CategoryLabel(c Category) (zh, en, icon string) {
	info := categoryLabels[c]
	return info.ZH, info.EN, info.Icon
}

// DifficultyLabel returns the bilingual display label for a tier.
func DifficultyLabel(d Difficulty) (zh, en, stars string) {
	info := difficultyLabels[d]
	return info.ZH, info.EN, info.Stars
}
