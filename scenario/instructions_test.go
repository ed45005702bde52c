package scenario

import (
	"strings"
	"testing"
)

func sampleScenario() Scenario {
	return Scenario{
		ID:         "scenario-01",
		Title:      Bilingual{ZH: "打架斗殴", EN: "Fighting and Brawling"},
		Category:   CategoryConflict,
		Difficulty: DifficultyIntermediate,
		Roles: Roles{
			Learner: "Security Officer",
			AI:      []string{"Passenger A", "Passenger B"},
		},
		Background: Bilingual{
			ZH: "两名乘客发生肢体冲突。",
			EN: "Two passengers get into a fight.",
		},
		DialogueScript: []DialogueLine{
			{Speaker: "Security Officer", Chinese: "请立即停止！", English: "Stop immediately!"},
		},
		KeyPhrases: []string{"Stop immediately!", "Please calm down."},
		LearningObjectives: BilingualList{
			ZH: []string{"果断制止冲突"},
			EN: []string{"Stop a conflict decisively"},
		},
		Tips: BilingualList{
			ZH: []string{"语气坚定"},
			EN: []string{"Be firm"},
		},
	}
}

func TestInstructionsIsDeterministic(t *testing.T) {
	s := sampleScenario()
	if Instructions(s) != Instructions(s) {
		t.Fatal("same scenario produced different instructions")
	}
}

func TestInstructionsContainsScenarioContent(t *testing.T) {
	out := Instructions(sampleScenario())

	for _, want := range []string{
		"打架斗殴",
		"Fighting and Brawling",
		"中级",
		"冲突处理",
		"Security Officer",
		"Passenger A、Passenger B",
		"Stop immediately!",
		"Please calm down.",
		"果断制止冲突",
		"语气坚定",
		"第1步",
		"第2步",
		"第3步",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}

func TestInstructionsMultiRoleNotice(t *testing.T) {
	s := sampleScenario()
	out := Instructions(s)
	if !strings.Contains(out, "扮演多个角色") {
		t.Error("multi-role scenario missing multi-role notice")
	}

	s.Roles.AI = []string{"Chief Purser"}
	out = Instructions(s)
	if !strings.Contains(out, "扮演一个角色") {
		t.Error("single-role scenario missing single-role notice")
	}
}

func TestInstructionsOmitsEmptySections(t *testing.T) {
	s := sampleScenario()
	s.KeyPhrases = nil
	s.LearningObjectives = BilingualList{}
	s.Tips = BilingualList{}
	s.DialogueScript = nil

	out := Instructions(s)

	for _, header := range []string{"学习目标", "关键短语", "实用提示", "参考对话"} {
		if strings.Contains(out, header) {
			t.Errorf("instructions contain %q section despite empty input", header)
		}
	}
	// The training flow is always present.
	if !strings.Contains(out, "训练流程") {
		t.Error("training flow section missing")
	}
}

func TestOpeningMentionsScenarioAndRoles(t *testing.T) {
	out := Opening(sampleScenario())

	for _, want := range []string{
		"打架斗殴",
		"Fighting and Brawling",
		"Security Officer",
		"Passenger A and Passenger B",
		"果断制止冲突",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("opening missing %q", want)
		}
	}
}

func TestDefaultCatalogParses(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) == 0 {
		t.Fatal("embedded catalog is empty")
	}
	for _, s := range catalog {
		if s.ID == "" {
			t.Fatal("catalog entry with empty id")
		}
		if s.Title.ZH == "" || s.Title.EN == "" {
			t.Fatalf("%s: bilingual title incomplete", s.ID)
		}
		if s.Difficulty.Rank() > len(difficultyRank) {
			t.Fatalf("%s: unknown difficulty %q", s.ID, s.Difficulty)
		}
		if _, ok := categoryLabels[s.Category]; !ok {
			t.Fatalf("%s: unknown category %q", s.ID, s.Category)
		}
	}
}

func TestFind(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	s, ok := Find(catalog, catalog[0].ID)
	if !ok || s.ID != catalog[0].ID {
		t.Fatal("Find did not return the requested scenario")
	}
	if _, ok := Find(catalog, "no-such-scenario"); ok {
		t.Fatal("Find returned a scenario for an unknown id")
	}
}
